package core

import "time"

// Grouping selects how GridBuilder slices a date range.
type Grouping string

const (
	GroupByDay   Grouping = "day"
	GroupByWeek  Grouping = "week"
	GroupByMonth Grouping = "month"
)

// TotalColumn is the synthetic column added by dimension comparisons.
const TotalColumn = "_total"

func (g Grouping) IsValid() bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth:
		return true
	default:
		return false
	}
}

type (
	// Period is a closed time interval [From, To].
	Period struct {
		ID    string    `json:"id"`
		Label string    `json:"label"`
		From  time.Time `json:"from"`
		To    time.Time `json:"to"`
	}

	// Row is the computed value of one category for one period or dimension column.
	Row struct {
		ID        string       `json:"id"`
		Code      string       `json:"code,omitempty"`
		Name      string       `json:"name"`
		Level     int          `json:"level"`
		Type      CategoryType `json:"type"`
		Format    Format       `json:"format,omitempty"`
		RawValue  float64      `json:"raw_value"`
		Formatted string       `json:"formatted"`
	}

	// Report is the result of one single-period calculation.
	Report struct {
		Period    Period     `json:"period"`
		Dimension *Dimension `json:"dimension,omitempty"`
		Rows      []Row      `json:"rows"`
		Warnings  []string   `json:"warnings"`
	}

	// RowHeader carries the category identity shared by every column of a table row.
	RowHeader struct {
		ID     string       `json:"id"`
		Code   string       `json:"code,omitempty"`
		Name   string       `json:"name"`
		Level  int          `json:"level"`
		Type   CategoryType `json:"type"`
		Format Format       `json:"format,omitempty"`
	}

	// TableRow holds one formatted and one raw value per column id.
	TableRow struct {
		RowHeader
		Values    map[string]string  `json:"values"`
		RawValues map[string]float64 `json:"raw_values"`
	}

	// Grid is a period-indexed table.
	Grid struct {
		Grouping Grouping   `json:"grouping"`
		Periods  []Period   `json:"periods"`
		Rows     []TableRow `json:"rows"`
		Warnings []string   `json:"warnings"`
	}

	// Comparison is a dimension-value-indexed table with a TotalColumn.
	Comparison struct {
		Period    Period     `json:"period"`
		Dimension string     `json:"dimension"`
		Columns   []string   `json:"columns"`
		Rows      []TableRow `json:"rows"`
		Warnings  []string   `json:"warnings"`
	}
)

func (r Row) Header() RowHeader {
	return RowHeader{ID: r.ID, Code: r.Code, Name: r.Name, Level: r.Level, Type: r.Type, Format: r.Format}
}

// Warnings collects messages in insertion order, dropping exact duplicates.
type Warnings struct {
	seen map[string]struct{}
	list []string
}

func (w *Warnings) Add(msg string) {
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	if _, ok := w.seen[msg]; ok {
		return
	}
	w.seen[msg] = struct{}{}
	w.list = append(w.list, msg)
}

func (w *Warnings) AddAll(msgs []string) {
	for _, m := range msgs {
		w.Add(m)
	}
}

// List returns a copy of the collected warnings; never nil.
func (w *Warnings) List() []string {
	out := make([]string, len(w.list))
	copy(out, w.list)
	return out
}

func (w *Warnings) Len() int {
	return len(w.list)
}
