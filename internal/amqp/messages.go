package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pnl/internal/core"
)

// ReportKind selects the builder a report request runs.
type ReportKind string

const (
	KindPeriod  ReportKind = "period"
	KindGrid    ReportKind = "grid"
	KindCompare ReportKind = "compare"
)

const dateLayout = "2006-01-02"

// ErrMalformedMessage marks a request that can never be processed.
var ErrMalformedMessage = errors.New("malformed report request")

// DimensionFilter is the wire form of core.Dimension.
type DimensionFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReportRequestMessage asks a worker to compute one report.
type ReportRequestMessage struct {
	RequestID uuid.UUID        `json:"request_id"`
	Kind      ReportKind       `json:"kind"`
	Company   string           `json:"company"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Grouping  core.Grouping    `json:"grouping,omitempty"`
	Dimension *DimensionFilter `json:"dimension,omitempty"`
	// CompareBy and Values drive KindCompare.
	CompareBy string    `json:"compare_by,omitempty"`
	Values    []string  `json:"values,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportRequestMessage stamps a fresh request id and timestamp.
func NewReportRequestMessage(kind ReportKind, company string, from, to time.Time) *ReportRequestMessage {
	return &ReportRequestMessage{
		RequestID: uuid.New(),
		Kind:      kind,
		Company:   company,
		From:      from.Format(dateLayout),
		To:        to.Format(dateLayout),
		Timestamp: time.Now(),
	}
}

// Validate checks the fields every kind needs. Semantic problems such as an
// unknown grouping are left to the builders.
func (m *ReportRequestMessage) Validate() error {
	switch {
	case m.RequestID == uuid.Nil:
		return fmt.Errorf("%w: missing request_id", ErrMalformedMessage)
	case m.Company == "":
		return fmt.Errorf("%w: missing company", ErrMalformedMessage)
	}
	if _, _, err := m.Range(); err != nil {
		return err
	}
	switch m.Kind {
	case KindPeriod, KindGrid:
		if m.Dimension != nil && (m.Dimension.Key == "" || m.Dimension.Value == "") {
			return fmt.Errorf("%w: incomplete dimension", ErrMalformedMessage)
		}
	case KindCompare:
		if m.CompareBy == "" || len(m.Values) == 0 {
			return fmt.Errorf("%w: compare needs compare_by and values", ErrMalformedMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedMessage, m.Kind)
	}
	return nil
}

// Range parses From and To as UTC dates.
func (m *ReportRequestMessage) Range() (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, m.From, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid from %q", ErrMalformedMessage, m.From)
	}
	to, err := time.ParseInLocation(dateLayout, m.To, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid to %q", ErrMalformedMessage, m.To)
	}
	return from, to, nil
}

// CoreDimension converts the optional filter.
func (m *ReportRequestMessage) CoreDimension() *core.Dimension {
	if m.Dimension == nil {
		return nil
	}
	return &core.Dimension{Key: m.Dimension.Key, Value: m.Dimension.Value}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes and validates a request.
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ResultStatus tells consumers whether a result carries a report.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// ReportResultMessage answers a ReportRequestMessage. Exactly one of
// Report, Grid and Comparison is set when Status is StatusOK.
type ReportResultMessage struct {
	RequestID  uuid.UUID        `json:"request_id"`
	Kind       ReportKind       `json:"kind"`
	Status     ResultStatus     `json:"status"`
	Error      string           `json:"error,omitempty"`
	Report     *core.Report     `json:"report,omitempty"`
	Grid       *core.Grid       `json:"grid,omitempty"`
	Comparison *core.Comparison `json:"comparison,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewErrorResult builds a failed result for req.
func NewErrorResult(req *ReportRequestMessage, err error) *ReportResultMessage {
	return &ReportResultMessage{
		RequestID: req.RequestID,
		Kind:      req.Kind,
		Status:    StatusError,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}

func (m *ReportResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
