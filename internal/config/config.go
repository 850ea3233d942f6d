package config

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"time"

	"tixwatch-backend/internal/classifier"
	"tixwatch-backend/internal/crawler"
	"tixwatch-backend/internal/notify"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/internal/validator"
	"tixwatch-backend/lib/configutil"
	"tixwatch-backend/lib/sqliteutil"
)

// ConfigFile is looked up from the working directory upwards.
const ConfigFile = "tixwatch.json5"

type Paths struct {
	Events         string `json:"events"`
	ReportJson     string `json:"report_json"`
	ReportMarkdown string `json:"report_markdown"`
	Preview        string `json:"preview"`
	// HttpDebug receives raw http exchanges while debug logging is on.
	HttpDebug string `json:"http_debug"`
}

// Zero thresholds are replaced by their defaults when the config is
// loaded, so suppression is turned off with DisableNearDuplicates instead.
type Classification struct {
	NearDuplicateThreshold float64 `json:"near_duplicate_threshold"`
	DisableNearDuplicates  bool    `json:"disable_near_duplicates"`
}

type Validation struct {
	MatchThreshold    float64 `json:"match_threshold"`
	MinTextLength     int     `json:"min_text_length"`
	Attempts          int     `json:"attempts"`
	RetryDelaySeconds float64 `json:"retry_delay_seconds"`
	DelaySeconds      float64 `json:"delay_seconds"`
}

type Fetch struct {
	ListingUrl     string  `json:"listing_url"`
	UserAgent      string  `json:"user_agent"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	// DelaySeconds is waited between pages of a crawl.
	DelaySeconds float64 `json:"delay_seconds"`
}

type Config struct {
	Paths          Paths             `json:"paths"`
	Classification Classification    `json:"classification"`
	Validation     Validation        `json:"validation"`
	Fetch          Fetch             `json:"fetch"`
	Smtp           notify.SmtpConfig `json:"smtp"`
	History        sqliteutil.Config `json:"history"`
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

func Defaults() Config {
	return Config{
		Paths: Paths{
			Events:         "tixcraft_activities.json",
			ReportJson:     "validation_report.json",
			ReportMarkdown: "validation_report.md",
			Preview:        "tixcraft_activities_corrected_preview.json",
			HttpDebug:      ".dev/http",
		},
		Classification: Classification{
			NearDuplicateThreshold: classifier.DefaultNearDuplicateThreshold,
		},
		Validation: Validation{
			MatchThreshold:    validator.DefaultMatchThreshold,
			MinTextLength:     validator.DefaultMinTextLength,
			Attempts:          validator.DefaultAttempts,
			RetryDelaySeconds: validator.DefaultRetryDelay.Seconds(),
			DelaySeconds:      0.2,
		},
		Fetch: Fetch{
			ListingUrl:     pagefetch.DefaultListingURL,
			UserAgent:      pagefetch.DefaultUserAgent,
			TimeoutSeconds: pagefetch.DefaultTimeout.Seconds(),
			DelaySeconds:   crawler.DefaultDelay.Seconds(),
		},
		Smtp: notify.SmtpConfig{
			Port: 587,
		},
	}
}

// Load reads ConfigFile and fills whatever it leaves out from Defaults. A
// missing file yields the defaults.
func Load() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config](ConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "name", ConfigFile)
		cfg, err = Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	return configutil.WithDefaults(cfg, Defaults())
}

// Read is Load for an explicit path.
func Read(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, err
	}
	return configutil.WithDefaults(cfg, Defaults())
}

func (c Config) Classifier() classifier.Classifier {
	out := classifier.New()
	out.NearDuplicateThreshold = c.Classification.NearDuplicateThreshold
	if c.Classification.DisableNearDuplicates {
		out.NearDuplicateThreshold = 0
	}
	return out
}

func (c Config) Validator() validator.Validator {
	return validator.Validator{
		Classifier:     c.Classifier(),
		MatchThreshold: c.Validation.MatchThreshold,
		MinTextLength:  c.Validation.MinTextLength,
	}
}

func (c Config) RetryDelay() time.Duration {
	return seconds(c.Validation.RetryDelaySeconds)
}

func (c Config) ValidationDelay() time.Duration {
	return seconds(c.Validation.DelaySeconds)
}

func (c Config) CrawlDelay() time.Duration {
	return seconds(c.Fetch.DelaySeconds)
}

func (c Config) FetchOptions() pagefetch.Options {
	return pagefetch.Options{
		ListingURL: c.Fetch.ListingUrl,
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    seconds(c.Fetch.TimeoutSeconds),
	}
}
