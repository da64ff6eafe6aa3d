package amqp

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"pnl/internal/core"
)

func TestNewReportRequestMessage(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	msg := NewReportRequestMessage(KindGrid, "acme", from, from.AddDate(0, 1, -1))

	if msg.RequestID == uuid.Nil || msg.Timestamp.IsZero() {
		t.Fatalf("msg = %+v", msg)
	}
	if msg.From != "2026-03-01" || msg.To != "2026-03-31" {
		t.Errorf("range = %s..%s", msg.From, msg.To)
	}
	gotFrom, gotTo, err := msg.Range()
	if err != nil || !gotFrom.Equal(from) || gotTo.Day() != 31 {
		t.Errorf("Range() = %v %v %v", gotFrom, gotTo, err)
	}
}

func TestReportRequestMessage_Validate(t *testing.T) {
	base := func() *ReportRequestMessage {
		return &ReportRequestMessage{RequestID: uuid.New(), Kind: KindGrid, Company: "acme", From: "2026-03-01", To: "2026-03-31"}
	}
	tests := []struct {
		name   string
		mutate func(*ReportRequestMessage)
		ok     bool
	}{
		{"grid", func(*ReportRequestMessage) {}, true},
		{"nil id", func(m *ReportRequestMessage) { m.RequestID = uuid.Nil }, false},
		{"no company", func(m *ReportRequestMessage) { m.Company = "" }, false},
		{"bad date", func(m *ReportRequestMessage) { m.To = "31/03/2026" }, false},
		{"unknown kind", func(m *ReportRequestMessage) { m.Kind = "pivot" }, false},
		{"half dimension", func(m *ReportRequestMessage) { m.Dimension = &DimensionFilter{Key: "store"} }, false},
		{"compare without values", func(m *ReportRequestMessage) { m.Kind = KindCompare; m.CompareBy = "store" }, false},
		{"compare", func(m *ReportRequestMessage) {
			m.Kind = KindCompare
			m.CompareBy = "store"
			m.Values = []string{"S1"}
		}, true},
		// Semantic checks belong to the builders.
		{"unknown grouping passes", func(m *ReportRequestMessage) { m.Grouping = "year" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(m)
			err := m.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok = %v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("err %v does not wrap ErrMalformedMessage", err)
			}
		})
	}
}

func TestReportRequestMessage_JSON(t *testing.T) {
	msg := NewReportRequestMessage(KindPeriod, "acme", time.Now(), time.Now())
	msg.Dimension = &DimensionFilter{Key: "store", Value: "S1"}
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ReportRequestMessageFromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.RequestID != msg.RequestID {
		t.Errorf("request id = %s, want %s", parsed.RequestID, msg.RequestID)
	}
	if d := parsed.CoreDimension(); d == nil || *d != (core.Dimension{Key: "store", Value: "S1"}) {
		t.Errorf("dimension = %+v", d)
	}

	if _, err := ReportRequestMessageFromJSON([]byte(`{"request_id": 5}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("err = %v, want ErrMalformedMessage", err)
	}
}

func TestNewErrorResult(t *testing.T) {
	req := NewReportRequestMessage(KindCompare, "acme", time.Now(), time.Now())
	res := NewErrorResult(req, core.ErrDimensionUnsupported)
	if res.Status != StatusError || res.RequestID != req.RequestID || res.Error != core.ErrDimensionUnsupported.Error() {
		t.Errorf("result = %+v", res)
	}
}
