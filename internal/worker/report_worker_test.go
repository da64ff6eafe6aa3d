package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pnl/internal/amqp"
	"pnl/internal/core"
	"pnl/internal/services"
	"pnl/internal/sources"
	"pnl/internal/sources/memory"
)

type fakePublisher struct {
	results []*amqp.ReportResultMessage
	err     error
}

func (f *fakePublisher) PublishReportResult(_ context.Context, msg *amqp.ReportResultMessage) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, msg)
	return nil
}

type noDimFacts struct{ *memory.Store }

func (noDimFacts) SupportsDimension() bool { return false }

type failingFacts struct{}

func (failingFacts) Value(context.Context, core.FactQuery) (float64, error) {
	return 0, errors.New("connection refused")
}
func (failingFacts) SupportsDimension() bool { return true }

// stalledFacts never answers before ctx is done.
type stalledFacts struct{}

func (stalledFacts) Value(ctx context.Context, _ core.FactQuery) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}
func (stalledFacts) SupportsDimension() bool { return true }

func testStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	store.AddCategories("acme",
		core.CategoryDefinition{ID: "gp", Code: "GP", Name: "Gross profit", Type: core.Subtotal},
		core.CategoryDefinition{ID: "rev", Code: "REVENUE", Name: "Revenue", ParentID: "gp", Type: core.LeafInput},
	)
	store.AddFacts(
		core.Fact{Company: "acme", Code: "REVENUE", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Amount: 100, Dimensions: map[string]string{"store": "S1"}},
		core.Fact{Company: "acme", Code: "REVENUE", Date: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), Amount: 50, Dimensions: map[string]string{"store": "S2"}},
	)
	return store
}

func newWorker(cats sources.CategoryReader, facts sources.FactsProvider, pub ResultPublisher) *ReportWorker {
	calc := services.NewCalculator(cats, facts)
	return NewReportWorker(calc, services.NewGridBuilder(calc, 2), services.NewCompareBuilder(calc, 2), pub, time.Minute)
}

func request(kind amqp.ReportKind) *amqp.ReportRequestMessage {
	return amqp.NewReportRequestMessage(kind, "acme",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
}

func TestHandleReportRequest_Kinds(t *testing.T) {
	store := testStore(t)

	tests := []struct {
		name  string
		msg   func() *amqp.ReportRequestMessage
		check func(t *testing.T, res *amqp.ReportResultMessage)
	}{
		{"period", func() *amqp.ReportRequestMessage { return request(amqp.KindPeriod) },
			func(t *testing.T, res *amqp.ReportResultMessage) {
				if res.Report == nil || res.Report.Rows[0].RawValue != 150 {
					t.Errorf("report = %+v", res.Report)
				}
			}},
		{"grid defaults to month", func() *amqp.ReportRequestMessage { return request(amqp.KindGrid) },
			func(t *testing.T, res *amqp.ReportResultMessage) {
				if res.Grid == nil || len(res.Grid.Periods) != 2 || res.Grid.Grouping != core.GroupByMonth {
					t.Errorf("grid = %+v", res.Grid)
				}
			}},
		{"compare", func() *amqp.ReportRequestMessage {
			m := request(amqp.KindCompare)
			m.CompareBy = "store"
			m.Values = []string{"S1", "S2"}
			return m
		}, func(t *testing.T, res *amqp.ReportResultMessage) {
			if res.Comparison == nil || res.Comparison.Rows[0].RawValues[core.TotalColumn] != 150 {
				t.Errorf("comparison = %+v", res.Comparison)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			msg := tt.msg()
			if err := newWorker(store, store, pub).HandleReportRequest(context.Background(), msg); err != nil {
				t.Fatalf("HandleReportRequest: %v", err)
			}
			if len(pub.results) != 1 {
				t.Fatalf("published %d results", len(pub.results))
			}
			res := pub.results[0]
			if res.Status != amqp.StatusOK || res.RequestID != msg.RequestID {
				t.Fatalf("result = %+v", res)
			}
			tt.check(t, res)
		})
	}
}

func TestHandleReportRequest_RefusedRequestsAreAnswered(t *testing.T) {
	store := testStore(t)

	tests := []struct {
		name  string
		facts sources.FactsProvider
		msg   func() *amqp.ReportRequestMessage
		want  error
	}{
		{"unsupported dimension", noDimFacts{store}, func() *amqp.ReportRequestMessage {
			m := request(amqp.KindPeriod)
			m.Dimension = &amqp.DimensionFilter{Key: "store", Value: "S1"}
			return m
		}, core.ErrDimensionUnsupported},
		{"invalid grouping", store, func() *amqp.ReportRequestMessage {
			m := request(amqp.KindGrid)
			m.Grouping = "year"
			return m
		}, core.ErrInvalidGrouping},
		{"range too large", store, func() *amqp.ReportRequestMessage {
			m := request(amqp.KindGrid)
			m.Grouping = core.GroupByDay
			m.From, m.To = "0001-01-01", "9999-12-31"
			return m
		}, core.ErrRangeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			if err := newWorker(store, tt.facts, pub).HandleReportRequest(context.Background(), tt.msg()); err != nil {
				t.Fatalf("HandleReportRequest: %v", err)
			}
			if len(pub.results) != 1 || pub.results[0].Status != amqp.StatusError || pub.results[0].Error == "" {
				t.Fatalf("results = %+v", pub.results)
			}
		})
	}
}

func TestHandleReportRequest_InfrastructureErrorsRequeue(t *testing.T) {
	store := testStore(t)

	pub := &fakePublisher{}
	err := newWorker(store, failingFacts{}, pub).HandleReportRequest(context.Background(), request(amqp.KindPeriod))
	if err == nil || len(pub.results) != 0 {
		t.Fatalf("err = %v, results = %d", err, len(pub.results))
	}

	pub = &fakePublisher{err: errors.New("broker down")}
	if err := newWorker(store, store, pub).HandleReportRequest(context.Background(), request(amqp.KindPeriod)); err == nil {
		t.Fatal("publish failure should be returned")
	}
}

func TestHandleReportRequest_TimeoutIsAnswered(t *testing.T) {
	store := testStore(t)
	calc := services.NewCalculator(store, stalledFacts{})
	pub := &fakePublisher{}
	w := NewReportWorker(calc, services.NewGridBuilder(calc, 1), services.NewCompareBuilder(calc, 1), pub, 20*time.Millisecond)

	msg := request(amqp.KindGrid)
	if err := w.HandleReportRequest(context.Background(), msg); err != nil {
		t.Fatalf("timed out request should be acked, got %v", err)
	}
	if len(pub.results) != 1 {
		t.Fatalf("published %d results", len(pub.results))
	}
	res := pub.results[0]
	if res.Status != amqp.StatusError || res.RequestID != msg.RequestID || !strings.Contains(res.Error, "timed out") {
		t.Fatalf("result = %+v", res)
	}
}

func TestHandleReportRequest_ShutdownRequeues(t *testing.T) {
	store := testStore(t)
	pub := &fakePublisher{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := newWorker(store, stalledFacts{}, pub).HandleReportRequest(ctx, request(amqp.KindPeriod))
	if err == nil || len(pub.results) != 0 {
		t.Fatalf("err = %v, results = %d; want requeue without result", err, len(pub.results))
	}
}
