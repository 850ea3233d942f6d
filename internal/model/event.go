package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// EventRecord is one observed activity. URL is its only stable identity,
// Index is reassigned whenever the owning collection is merged.
type EventRecord struct {
	Index           int    `json:"index"`
	Title           string `json:"title"`
	EventInfo       string `json:"event_info"`
	Location        string `json:"location"`
	Price           string `json:"price"`
	SaleTime        string `json:"sale_time"`
	URL             string `json:"url"`
	ScrapeTimestamp string `json:"scrape_timestamp,omitempty"`

	// analytics data layer metadata, present when the page exposed it
	Category string `json:"category,omitempty"`
	GameCode string `json:"game_code,omitempty"`
	Promoter string `json:"promoter,omitempty"`

	// Extra holds keys this version does not know about so that a
	// load/save cycle does not lose them.
	Extra map[string]json.RawMessage `json:"-"`
}

func (r EventRecord) Fields() ClassifiedFields {
	return ClassifiedFields{
		EventInfo: r.EventInfo,
		Location:  r.Location,
		Price:     r.Price,
		SaleTime:  r.SaleTime,
	}
}

func (r EventRecord) Get(f Field) string {
	return r.Fields().Get(f)
}

func (r *EventRecord) Set(f Field, value string) {
	switch f {
	case FieldEventInfo:
		r.EventInfo = value
	case FieldLocation:
		r.Location = value
	case FieldPrice:
		r.Price = value
	case FieldSaleTime:
		r.SaleTime = value
	}
}

func (r *EventRecord) SetFields(c ClassifiedFields) {
	for _, f := range Fields {
		r.Set(f, c.Get(f))
	}
}

// Resolved reports whether at least one classified field holds a value.
func (r EventRecord) Resolved() bool {
	for _, f := range Fields {
		if r.Get(f) != NotFound {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r EventRecord) Clone() EventRecord {
	if r.Extra != nil {
		extra := make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = append(json.RawMessage(nil), v...)
		}
		r.Extra = extra
	}
	return r
}

type eventRecordJSON EventRecord

var knownRecordKeys = map[string]struct{}{
	"index": {}, "title": {}, "event_info": {}, "location": {},
	"price": {}, "sale_time": {}, "url": {}, "scrape_timestamp": {},
	"category": {}, "game_code": {}, "promoter": {},
}

func (r *EventRecord) UnmarshalJSON(data []byte) error {
	var decoded eventRecordJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if _, known := knownRecordKeys[k]; known {
			continue
		}
		if decoded.Extra == nil {
			decoded.Extra = make(map[string]json.RawMessage)
		}
		decoded.Extra[k] = v
	}
	*r = EventRecord(decoded)
	return nil
}

func (r EventRecord) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(eventRecordJSON(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return known, nil
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if _, clash := knownRecordKeys[k]; clash {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := bytes.NewBuffer(known[:len(known)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(r.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EventCollection is the persisted document owned by the event store.
type EventCollection struct {
	ScrapeTime   string        `json:"scrape_time"`
	LastUpdate   string        `json:"last_update"`
	TotalEvents  int           `json:"total_events"`
	SuccessCount int           `json:"success_count"`
	SuccessRate  string        `json:"success_rate"`
	Events       []EventRecord `json:"events"`

	ExtractionMethod     string `json:"extraction_method,omitempty"`
	CurrentScrapeCount   int    `json:"current_scrape_count,omitempty"`
	CurrentScrapeSuccess int    `json:"current_scrape_success,omitempty"`
}

// Clone returns a deep copy.
func (c EventCollection) Clone() EventCollection {
	events := make([]EventRecord, len(c.Events))
	for i, e := range c.Events {
		events[i] = e.Clone()
	}
	c.Events = events
	return c
}

// Find returns the position of the record with the given url, or -1.
func (c EventCollection) Find(url string) int {
	for i, e := range c.Events {
		if e.URL == url {
			return i
		}
	}
	return -1
}
