package database

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/dandantas/pulse/internal/model"
)

// MonitorRow is the flat column layout of the monitors table used by the SQL stores
type MonitorRow struct {
	ID          int64
	Label       string
	Type        string
	Periodicity int
	Status      string
	Hostname    sql.NullString
	Port        sql.NullInt64
	URL         sql.NullString
	CheckStatus bool
	Keywords    sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ToModel converts the row into a monitor with the payload matching its type
func (r MonitorRow) ToModel() *model.Monitor {
	m := &model.Monitor{
		ID:          r.ID,
		Label:       r.Label,
		Type:        model.MonitorType(strings.ToLower(r.Type)),
		Periodicity: r.Periodicity,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	switch m.Type {
	case model.MonitorTypePing:
		if r.Hostname.Valid && r.Port.Valid {
			m.Ping = &model.PingTarget{Hostname: r.Hostname.String, Port: int(r.Port.Int64)}
		}
	case model.MonitorTypeWebsite:
		if r.URL.Valid {
			m.Website = &model.WebsiteTarget{
				URL:         r.URL.String,
				CheckStatus: r.CheckStatus,
				Keywords:    DecodeKeywords(r.Keywords),
			}
		}
	}

	return m
}

// MonitorToRow flattens a monitor into table columns
func MonitorToRow(m *model.Monitor) MonitorRow {
	row := MonitorRow{
		ID:          m.ID,
		Label:       m.Label,
		Type:        string(m.Type),
		Periodicity: m.Periodicity,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Ping != nil {
		row.Hostname = sql.NullString{String: m.Ping.Hostname, Valid: true}
		row.Port = sql.NullInt64{Int64: int64(m.Ping.Port), Valid: true}
	}
	if m.Website != nil {
		row.URL = sql.NullString{String: m.Website.URL, Valid: true}
		row.CheckStatus = m.Website.CheckStatus
		row.Keywords = EncodeKeywords(m.Website.Keywords)
	}
	return row
}

// DecodeKeywords parses the JSON keyword column. Anything but a JSON array of
// strings yields no keywords.
func DecodeKeywords(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw.String), &keywords); err != nil {
		return nil
	}
	return keywords
}

// EncodeKeywords renders keywords for the JSON keyword column
func EncodeKeywords(keywords []string) sql.NullString {
	if len(keywords) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}
