package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pnl/internal/amqp"
	"pnl/internal/core"
	"pnl/internal/services"
)

// ResultPublisher sends computed results back to requesters.
type ResultPublisher interface {
	PublishReportResult(ctx context.Context, msg *amqp.ReportResultMessage) error
}

// ReportWorker runs queued report requests through the builders.
type ReportWorker struct {
	calc    *services.Calculator
	grid    *services.GridBuilder
	compare *services.CompareBuilder
	results ResultPublisher
	timeout time.Duration
}

func NewReportWorker(calc *services.Calculator, grid *services.GridBuilder, compare *services.CompareBuilder, results ResultPublisher, timeout time.Duration) *ReportWorker {
	return &ReportWorker{
		calc:    calc,
		grid:    grid,
		compare: compare,
		results: results,
		timeout: timeout,
	}
}

// HandleReportRequest computes and publishes the result of msg. Requests the
// engine refuses (unsupported dimension, bad grouping, oversized ranges) and
// requests that exceed the worker timeout are answered with an error result
// and count as handled. Any other error is returned so the delivery is
// requeued.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	start := time.Now()
	slog.InfoContext(ctx, "Processing report request",
		"request_id", msg.RequestID,
		"kind", msg.Kind,
		"company", msg.Company)

	result, err := w.run(ctx, msg)
	if err != nil {
		switch {
		case isRequestError(err):
			slog.WarnContext(ctx, "Report request refused",
				"request_id", msg.RequestID,
				"error", err)
		case ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
			// Our own timeout fired; a redelivery would time out again.
			slog.WarnContext(ctx, "Report request timed out",
				"request_id", msg.RequestID,
				"timeout", w.timeout,
				"error", err)
			err = fmt.Errorf("report timed out after %s: %w", w.timeout, err)
		default:
			return fmt.Errorf("%s report %s: %w", msg.Kind, msg.RequestID, err)
		}
		result = amqp.NewErrorResult(msg, err)
	}

	if err := w.results.PublishReportResult(ctx, result); err != nil {
		return fmt.Errorf("publish result %s: %w", msg.RequestID, err)
	}

	slog.InfoContext(ctx, "Report request completed",
		"request_id", msg.RequestID,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *ReportWorker) run(ctx context.Context, msg *amqp.ReportRequestMessage) (*amqp.ReportResultMessage, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	from, to, err := msg.Range()
	if err != nil {
		return nil, err
	}

	result := &amqp.ReportResultMessage{
		RequestID: msg.RequestID,
		Kind:      msg.Kind,
		Status:    amqp.StatusOK,
	}
	switch msg.Kind {
	case amqp.KindPeriod:
		result.Report, err = w.calc.Calculate(ctx, msg.Company, services.AggregatePeriod(from, to), msg.CoreDimension())
	case amqp.KindGrid:
		grouping := msg.Grouping
		if grouping == "" {
			grouping = core.GroupByMonth
		}
		result.Grid, err = w.grid.Build(ctx, msg.Company, from, to, grouping, msg.CoreDimension())
	case amqp.KindCompare:
		result.Comparison, err = w.compare.Build(ctx, msg.Company, from, to, msg.Values, msg.CompareBy)
	default:
		err = fmt.Errorf("%w: unknown kind %q", amqp.ErrMalformedMessage, msg.Kind)
	}
	if err != nil {
		return nil, err
	}
	result.Timestamp = time.Now()
	return result, nil
}

// isRequestError reports failures that retrying cannot fix.
func isRequestError(err error) bool {
	return errors.Is(err, core.ErrDimensionUnsupported) ||
		errors.Is(err, core.ErrInvalidGrouping) ||
		errors.Is(err, core.ErrEmptyCompany) ||
		errors.Is(err, core.ErrRangeTooLarge) ||
		errors.Is(err, amqp.ErrMalformedMessage)
}
