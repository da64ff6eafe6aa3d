package sources

import (
	"context"

	"pnl/internal/core"
)

// Ports for outbound adapters.
type (
	// CategoryReader loads the report definition of a company. Callers
	// treat every call as fresh; adapters must not cache definitions.
	CategoryReader interface {
		Categories(ctx context.Context, company string) ([]core.CategoryDefinition, error)
	}

	// FactsProvider returns the observed value of a leaf category code over
	// a period, optionally narrowed by a dimension. Missing data is 0, not
	// an error.
	FactsProvider interface {
		Value(ctx context.Context, q core.FactQuery) (float64, error)
		// SupportsDimension reports whether q.Dimension is honoured.
		SupportsDimension() bool
	}
)
