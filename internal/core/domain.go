package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	LeafInput CategoryType = "LEAF_INPUT"
	Subtotal  CategoryType = "SUBTOTAL"
	KPI       CategoryType = "KPI"
)

const (
	FormatMoney   Format = "MONEY"
	FormatPercent Format = "PERCENT"
	FormatNumber  Format = "NUMBER"
)

type (
	CategoryType string

	// Format is a display tag consumed only by FormatValue.
	Format string

	CategoryDefinition struct {
		ID             string
		Code           string // optional, unique among categories that define it
		Name           string
		Level          int
		SortOrder      int
		ParentID       string // empty for roots
		Type           CategoryType
		Formula        string
		WeightInParent *float64 // nil means 1
		Format         Format
	}

	// Dimension narrows the facts fetched for a calculation (e.g. store=S1).
	Dimension struct {
		Key   string
		Value string
	}

	// Fact is one observed amount for a leaf code on a day, tagged with
	// optional dimension values (e.g. store=S1).
	Fact struct {
		Company    string
		Code       string
		Date       time.Time
		Amount     float64
		Dimensions map[string]string
	}

	// FactQuery identifies one observed value asked of a facts source.
	FactQuery struct {
		Company   string
		Period    Period
		Code      string
		Dimension *Dimension
	}
)

var (
	ErrDimensionUnsupported = errors.New("dimension not supported by facts source")
	ErrEmptyCompany         = errors.New("empty company")
	ErrInvalidGrouping      = errors.New("invalid grouping")
	ErrRangeTooLarge        = errors.New("requested range too large")
)

// Limits on the number of calculations a single grid or comparison may run.
const (
	MaxPeriods       = 1000
	MaxCompareValues = 100
)

// IsValid reports whether t is one of the known category types.
func (t CategoryType) IsValid() bool {
	switch t {
	case LeafInput, Subtotal, KPI:
		return true
	default:
		return false
	}
}

func (d CategoryDefinition) Weight() float64 {
	if d.WeightInParent == nil {
		return 1
	}
	return *d.WeightInParent
}

// HasFormula reports whether the definition carries a non-blank formula.
func (d CategoryDefinition) HasFormula() bool {
	return strings.TrimSpace(d.Formula) != ""
}

// IsRollup reports whether the category is a formula-less subtotal.
func (d CategoryDefinition) IsRollup() bool {
	return d.Type == Subtotal && !d.HasFormula()
}

// Label returns the code when present, the id otherwise. Used in warnings.
func (d CategoryDefinition) Label() string {
	if d.Code != "" {
		return d.Code
	}
	return d.ID
}

func (d Dimension) String() string {
	return d.Key + "=" + d.Value
}

// Matches reports whether f contributes to q.
func (f Fact) Matches(q FactQuery) bool {
	if f.Company != q.Company || f.Code != q.Code {
		return false
	}
	if f.Date.Before(q.Period.From) || f.Date.After(q.Period.To) {
		return false
	}
	return q.Dimension == nil || f.Dimensions[q.Dimension.Key] == q.Dimension.Value
}

// FactKey is a stable cache key for a query.
func (q FactQuery) FactKey() string {
	key := fmt.Sprintf("%s|%s|%s|%s", q.Company, q.Period.From.Format(time.RFC3339), q.Period.To.Format(time.RFC3339), q.Code)
	if q.Dimension != nil {
		key += "|" + q.Dimension.String()
	}
	return key
}
