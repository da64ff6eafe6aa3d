package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"pnl/internal/core"
)

type seedFile struct {
	Companies []seedCompany `toml:"company"`
}

type seedCompany struct {
	Name       string         `toml:"name"`
	Categories []seedCategory `toml:"category"`
	Facts      []seedFact     `toml:"fact"`
}

type seedCategory struct {
	ID        string   `toml:"id"`
	Code      string   `toml:"code,omitempty"`
	Name      string   `toml:"name"`
	Level     int      `toml:"level"`
	SortOrder int      `toml:"sort_order"`
	Parent    string   `toml:"parent,omitempty"`
	Type      string   `toml:"type"`
	Formula   string   `toml:"formula,omitempty"`
	Weight    *float64 `toml:"weight,omitempty"`
	Format    string   `toml:"format,omitempty"`
}

type seedFact struct {
	Code       string            `toml:"code"`
	Date       string            `toml:"date"`
	Amount     float64           `toml:"amount"`
	Dimensions map[string]string `toml:"dimensions,omitempty"`
}

const seedDateLayout = "2006-01-02"

// NewFromFile builds a store from a TOML seed file.
func NewFromFile(path string) (*Store, error) {
	var seed seedFile
	md, err := toml.DecodeFile(path, &seed)
	if err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("seed %s: unknown keys %v", path, undecoded)
	}
	return fromSeed(seed)
}

// Parse builds a store from TOML seed content.
func Parse(data string) (*Store, error) {
	var seed seedFile
	if _, err := toml.Decode(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return fromSeed(seed)
}

func fromSeed(seed seedFile) (*Store, error) {
	s := New()
	for _, c := range seed.Companies {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("seed: %w", core.ErrEmptyCompany)
		}
		defs := make([]core.CategoryDefinition, 0, len(c.Categories))
		for _, sc := range c.Categories {
			defs = append(defs, core.CategoryDefinition{
				ID:             sc.ID,
				Code:           sc.Code,
				Name:           sc.Name,
				Level:          sc.Level,
				SortOrder:      sc.SortOrder,
				ParentID:       sc.Parent,
				Type:           core.CategoryType(strings.ToUpper(sc.Type)),
				Formula:        sc.Formula,
				WeightInParent: sc.Weight,
				Format:         core.ParseFormat(sc.Format),
			})
		}
		s.AddCategories(c.Name, defs...)

		for i, f := range c.Facts {
			date, err := time.Parse(seedDateLayout, f.Date)
			if err != nil {
				return nil, fmt.Errorf("seed %s fact %d: invalid date %q: %w", c.Name, i, f.Date, err)
			}
			s.AddFacts(core.Fact{
				Company:    c.Name,
				Code:       f.Code,
				Date:       date,
				Amount:     f.Amount,
				Dimensions: f.Dimensions,
			})
		}
	}
	return s, nil
}
