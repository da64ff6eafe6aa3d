package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pnl/internal/core"
)

// factRow is one line of the facts sheet.
type factRow struct {
	Company    string
	Code       string
	Date       time.Time
	Amount     float64
	Dimensions map[string]string
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006"}

var factColumns = []string{"Company", "Date", "Code", "Amount"}

var categoryColumns = []string{"Company", "ID", "Name", "Type"}

// parseFacts converts the facts sheet into rows. The header must contain
// Company, Date, Code and Amount; every other named column is a dimension
// key (lower-cased). Rows that cannot be parsed are skipped and reported.
func parseFacts(values [][]any) ([]factRow, []error, error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	headers := toStrings(values[0])
	cols, err := requireColumns(headers, factColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("facts sheet: %w", err)
	}

	dims := map[int]string{}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" || indexOf(factColumns, h) >= 0 {
			continue
		}
		dims[i] = strings.ToLower(h)
	}

	var (
		rows    []factRow
		skipped []error
	)
	for i := 1; i < len(values); i++ {
		cells := toStrings(values[i])
		if isBlank(cells) {
			continue
		}
		line := i + 1
		company := strings.TrimSpace(safeGet(cells, cols["Company"]))
		code := strings.TrimSpace(safeGet(cells, cols["Code"]))
		if company == "" || code == "" {
			skipped = append(skipped, fmt.Errorf("row %d: missing company or code", line))
			continue
		}
		date, err := parseDate(safeGet(cells, cols["Date"]))
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		amount, err := core.ParseAmount(safeGet(cells, cols["Amount"]))
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: amount %q: %w", line, safeGet(cells, cols["Amount"]), err))
			continue
		}

		r := factRow{Company: company, Code: code, Date: date, Amount: amount}
		for idx, key := range dims {
			if v := strings.TrimSpace(safeGet(cells, idx)); v != "" {
				if r.Dimensions == nil {
					r.Dimensions = make(map[string]string, len(dims))
				}
				r.Dimensions[key] = v
			}
		}
		rows = append(rows, r)
	}
	return rows, skipped, nil
}

// parseCategories converts the categories sheet into per-company
// definitions in sheet order. Required columns are Company, ID, Name and
// Type; Code, Level, SortOrder, Parent, Formula, Weight and Format are
// optional.
func parseCategories(values [][]any) (map[string][]core.CategoryDefinition, []error, error) {
	out := map[string][]core.CategoryDefinition{}
	if len(values) == 0 {
		return out, nil, nil
	}
	headers := toStrings(values[0])
	cols, err := requireColumns(headers, categoryColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("categories sheet: %w", err)
	}
	for _, name := range []string{"Code", "Level", "SortOrder", "Parent", "Formula", "Weight", "Format"} {
		cols[name] = indexOf(headers, name)
	}

	var skipped []error
	for i := 1; i < len(values); i++ {
		cells := toStrings(values[i])
		if isBlank(cells) {
			continue
		}
		line := i + 1
		get := func(col string) string { return strings.TrimSpace(safeGet(cells, cols[col])) }

		company, id := get("Company"), get("ID")
		if company == "" || id == "" {
			skipped = append(skipped, fmt.Errorf("row %d: missing company or id", line))
			continue
		}
		level, err := optionalInt(get("Level"))
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: level: %w", line, err))
			continue
		}
		sortOrder, err := optionalInt(get("SortOrder"))
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: sort order: %w", line, err))
			continue
		}
		def := core.CategoryDefinition{
			ID:        id,
			Code:      get("Code"),
			Name:      get("Name"),
			Level:     level,
			SortOrder: sortOrder,
			ParentID:  get("Parent"),
			Type:      core.CategoryType(strings.ToUpper(get("Type"))),
			Formula:   get("Formula"),
			Format:    core.ParseFormat(get("Format")),
		}
		if w := get("Weight"); w != "" {
			weight, err := core.ParseAmount(w)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("row %d: weight %q: %w", line, w, err))
				continue
			}
			def.WeightInParent = &weight
		}
		out[company] = append(out[company], def)
	}
	return out, skipped, nil
}

// sumFacts adds the amounts of rows matching q.
func sumFacts(rows []factRow, q core.FactQuery) float64 {
	var sum float64
	for _, r := range rows {
		if r.Company != q.Company || r.Code != q.Code {
			continue
		}
		if r.Date.Before(q.Period.From) || r.Date.After(q.Period.To) {
			continue
		}
		if q.Dimension != nil && r.Dimensions[strings.ToLower(q.Dimension.Key)] != q.Dimension.Value {
			continue
		}
		sum += r.Amount
	}
	return sum
}

func requireColumns(headers, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		idx := indexOf(headers, name)
		if idx < 0 {
			missing = append(missing, name)
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	return cols, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
