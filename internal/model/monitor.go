package model

import (
	"net"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MonitorType identifies which probe evaluates a monitor
type MonitorType string

const (
	MonitorTypePing    MonitorType = "ping"
	MonitorTypeWebsite MonitorType = "website"
)

// Monitor status values as stored on the monitor record
const (
	MonitorStatusUnknown = "unknown"
)

// Periodicity bounds accepted for newly created monitors (seconds)
const (
	MinPeriodicity = 5
	MaxPeriodicity = 300
)

var httpURLPattern = regexp.MustCompile(`^https?://`)

// PingTarget is the TCP endpoint of a ping monitor
type PingTarget struct {
	Hostname string `json:"hostname" bson:"hostname"`
	Port     int    `json:"port" bson:"port"`
}

// Validate checks that the ping payload names an endpoint
func (p PingTarget) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Hostname, validation.Required),
		validation.Field(&p.Port, validation.Required),
	)
}

func (p PingTarget) validateNew() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Hostname, is.Host),
		validation.Field(&p.Port, validation.Min(1), validation.Max(65535)),
	)
}

// WebsiteTarget is the HTTP endpoint and expectations of a website monitor
type WebsiteTarget struct {
	URL         string   `json:"url" bson:"url"`
	CheckStatus bool     `json:"check_status" bson:"check_status"`
	Keywords    []string `json:"keywords,omitempty" bson:"keywords,omitempty"`
}

// Validate checks that the website payload has a URL
func (w WebsiteTarget) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.URL, validation.Required),
	)
}

func (w WebsiteTarget) validateNew() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.URL,
			validation.Match(httpURLPattern).Error("must start with http:// or https://"),
			is.URL,
		),
	)
}

// Monitor is a health check definition. Exactly one of Ping or Website is set,
// matching Type.
type Monitor struct {
	ID          int64          `json:"id" bson:"_id"`
	Label       string         `json:"label" bson:"label"`
	Type        MonitorType    `json:"type" bson:"type"`
	Periodicity int            `json:"periodicity" bson:"periodicity"` // seconds
	Status      string         `json:"status" bson:"status"`
	Ping        *PingTarget    `json:"ping,omitempty" bson:"ping,omitempty"`
	Website     *WebsiteTarget `json:"website,omitempty" bson:"website,omitempty"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

// Validate checks what a stored monitor needs to be scheduled: a known type,
// a positive periodicity and the payload matching the type.
func (m *Monitor) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Type, validation.Required, validation.In(MonitorTypePing, MonitorTypeWebsite)),
		validation.Field(&m.Periodicity, validation.Required, validation.Min(1)),
		validation.Field(&m.Ping,
			validation.When(m.Type == MonitorTypePing, validation.Required).Else(validation.Nil),
		),
		validation.Field(&m.Website,
			validation.When(m.Type == MonitorTypeWebsite, validation.Required).Else(validation.Nil),
		),
	)
}

// ValidateNew applies the additional limits enforced on monitors created
// through the API: label length, periodicity bounds, a resolvable host shape
// and an http(s) URL. Stored monitors are not held to these.
func (m *Monitor) ValidateNew() error {
	if err := m.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(m,
		validation.Field(&m.Label, validation.Required, validation.Length(1, 255)),
		validation.Field(&m.Periodicity, validation.Min(MinPeriodicity), validation.Max(MaxPeriodicity)),
		validation.Field(&m.Ping, validation.By(func(any) error {
			if m.Ping == nil {
				return nil
			}
			return m.Ping.validateNew()
		})),
		validation.Field(&m.Website, validation.By(func(any) error {
			if m.Website == nil {
				return nil
			}
			return m.Website.validateNew()
		})),
	)
}

// Interval returns the periodicity as a duration
func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.Periodicity) * time.Second
}

// Address returns the host:port dialed by the ping probe
func (m *Monitor) Address() string {
	if m.Ping == nil {
		return ""
	}
	return net.JoinHostPort(m.Ping.Hostname, strconv.Itoa(m.Ping.Port))
}
