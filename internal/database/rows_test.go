package database_test

import (
	"database/sql"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
)

var _ = Describe("MonitorRow", func() {
	Describe("ToModel", func() {
		It("should attach only the ping payload to ping rows", func() {
			row := database.MonitorRow{
				ID: 1, Label: "db", Type: "PING", Periodicity: 10,
				Hostname: sql.NullString{String: "10.0.0.5", Valid: true},
				Port:     sql.NullInt64{Int64: 5432, Valid: true},
				URL:      sql.NullString{String: "https://ignored", Valid: true},
			}

			m := row.ToModel()
			Expect(m.Type).To(Equal(model.MonitorTypePing))
			Expect(m.Ping).To(Equal(&model.PingTarget{Hostname: "10.0.0.5", Port: 5432}))
			Expect(m.Website).To(BeNil())
			Expect(m.Validate()).To(Succeed())
		})

		It("should leave the payload empty when columns are missing", func() {
			row := database.MonitorRow{ID: 2, Label: "db", Type: "ping", Periodicity: 10}

			m := row.ToModel()
			Expect(m.Ping).To(BeNil())
			Expect(m.Validate()).NotTo(Succeed())
		})
	})

	Describe("DecodeKeywords", func() {
		It("should parse a JSON array", func() {
			Expect(database.DecodeKeywords(sql.NullString{String: `["OK","ready"]`, Valid: true})).
				To(Equal([]string{"OK", "ready"}))
		})

		It("should ignore malformed or non-array values", func() {
			Expect(database.DecodeKeywords(sql.NullString{String: `{"a":1}`, Valid: true})).To(BeNil())
			Expect(database.DecodeKeywords(sql.NullString{String: `not json`, Valid: true})).To(BeNil())
			Expect(database.DecodeKeywords(sql.NullString{})).To(BeNil())
		})
	})

	Describe("MonitorToRow", func() {
		It("should store no keyword column for an empty list", func() {
			row := database.MonitorToRow(&model.Monitor{
				Type:    model.MonitorTypeWebsite,
				Website: &model.WebsiteTarget{URL: "https://example.com"},
			})
			Expect(row.URL.Valid).To(BeTrue())
			Expect(row.Keywords.Valid).To(BeFalse())
			Expect(row.Hostname.Valid).To(BeFalse())
		})
	})
})
