package recommend

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/trademind/agent/contract"
	"gopkg.in/yaml.v3"
)

//go:embed markup.yaml
var defaultMarkupRaw []byte

type gradeMarkup map[contractx.Grade]float64

// MarkupTable holds retail markups by brand and grade. Brands without an
// entry use Default; grades missing from a brand row use that row's C value.
type MarkupTable struct {
	Default gradeMarkup            `yaml:"default"`
	Brands  map[string]gradeMarkup `yaml:"brands"`
}

func DefaultMarkup() MarkupTable {
	t, err := ParseMarkup(defaultMarkupRaw)
	if err != nil {
		panic(fmt.Sprintf("embedded markup table: %v", err))
	}
	return t
}

// LoadMarkup reads a table from path, or returns the built-in one for "".
func LoadMarkup(path string) (MarkupTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultMarkup(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return MarkupTable{}, fmt.Errorf("read markup table: %w", err)
	}
	return ParseMarkup(raw)
}

func ParseMarkup(raw []byte) (MarkupTable, error) {
	var t MarkupTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return MarkupTable{}, fmt.Errorf("parse markup table: %w", err)
	}
	if _, ok := t.Default[contractx.GradeC]; !ok {
		return MarkupTable{}, fmt.Errorf("%w: markup table needs a default C entry", contractx.ErrValidation)
	}
	brands := make(map[string]gradeMarkup, len(t.Brands))
	for b, row := range t.Brands {
		if _, ok := row[contractx.GradeC]; !ok {
			return MarkupTable{}, fmt.Errorf("%w: markup row %q needs a C entry", contractx.ErrValidation, b)
		}
		brands[strings.ToLower(b)] = row
	}
	t.Brands = brands
	return t, nil
}

func (t MarkupTable) Factor(brand string, grade contractx.Grade) float64 {
	row, ok := t.Brands[strings.ToLower(strings.TrimSpace(brand))]
	if !ok {
		row = t.Default
	}
	if f, ok := row[grade]; ok {
		return f
	}
	return row[contractx.GradeC]
}
