package model

import (
	"fmt"
	"strings"
)

// NotFound is the sentinel stored in a classified field that could not be
// determined. Consumers must read it as "unknown", never as an error.
const NotFound = "未找到"

// unresolvedValues are treated like NotFound when comparing. Earlier crawler
// generations wrote these markers into the same fields.
var unresolvedValues = map[string]struct{}{
	"":          {},
	NotFound:    {},
	"提取失敗":      {},
	"錯誤":        {},
	"N/A":       {},
	"請參閱官網詳細說明": {},
}

func IsUnresolved(value string) bool {
	_, ok := unresolvedValues[strings.TrimSpace(value)]
	return ok
}

// Field names one of the classified fields of an EventRecord.
type Field string

const (
	FieldEventInfo Field = "event_info"
	FieldLocation  Field = "location"
	FieldPrice     Field = "price"
	FieldSaleTime  Field = "sale_time"
)

// Fields is the canonical field order used in reports and tallies.
var Fields = []Field{FieldEventInfo, FieldLocation, FieldPrice, FieldSaleTime}

func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field '%s'", s)
}

// ClassifiedFields is the output of the classifier for one page.
type ClassifiedFields struct {
	EventInfo string `json:"event_info"`
	Location  string `json:"location"`
	Price     string `json:"price"`
	SaleTime  string `json:"sale_time"`
}

func (c ClassifiedFields) Get(f Field) string {
	switch f {
	case FieldEventInfo:
		return c.EventInfo
	case FieldLocation:
		return c.Location
	case FieldPrice:
		return c.Price
	case FieldSaleTime:
		return c.SaleTime
	}
	return ""
}

func (c *ClassifiedFields) Set(f Field, value string) {
	switch f {
	case FieldEventInfo:
		c.EventInfo = value
	case FieldLocation:
		c.Location = value
	case FieldPrice:
		c.Price = value
	case FieldSaleTime:
		c.SaleTime = value
	}
}

// Unresolved returns fields where nothing was classified.
func Unresolved() ClassifiedFields {
	return ClassifiedFields{
		EventInfo: NotFound,
		Location:  NotFound,
		Price:     NotFound,
		SaleTime:  NotFound,
	}
}
