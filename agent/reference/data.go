package reference

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Tables is the raw shape every Source yields.
type Tables struct {
	ModelCodes   map[string]float64
	BrandModels  map[string][]string
	ReleaseDates []ReleaseEntry
}

// ReleaseEntry is one row of the release-date table; Name is "Brand Model".
type ReleaseEntry struct {
	Name string
	Date time.Time
}

type Source interface {
	Load(ctx context.Context) (Tables, error)
}

// Data is immutable after construction and safe for concurrent readers.
type Data struct {
	modelCodes   map[string]float64
	brandModels  map[string][]string
	releaseDates []ReleaseEntry
}

// Load reads all tables from src. A failing source never aborts startup:
// whatever was read is kept, the rest stays empty and every lookup misses.
func Load(ctx context.Context, src Source) *Data {
	if src == nil {
		log.Warn().Msg("reference: no source configured, using empty tables")
		return New(Tables{})
	}
	tables, err := src.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reference: load failed, degraded to partial tables")
	}
	data := New(tables)
	log.Info().
		Int("model_refs", len(data.modelCodes)).
		Int("brands", len(data.brandModels)).
		Int("release_dates", len(data.releaseDates)).
		Msg("reference data loaded")
	return data
}

// New copies t so later mutation by the caller cannot leak in.
func New(t Tables) *Data {
	d := &Data{
		modelCodes:   make(map[string]float64, len(t.ModelCodes)),
		brandModels:  make(map[string][]string, len(t.BrandModels)),
		releaseDates: append([]ReleaseEntry(nil), t.ReleaseDates...),
	}
	for k, v := range t.ModelCodes {
		d.modelCodes[k] = v
	}
	for brand, models := range t.BrandModels {
		key := strings.ToLower(strings.TrimSpace(brand))
		d.brandModels[key] = append(d.brandModels[key], models...)
	}
	return d
}

// ModelCode resolves an exact model name to its numeric reference code.
func (d *Data) ModelCode(name string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	code, ok := d.modelCodes[name]
	return code, ok
}

// ModelsForBrand returns a copy of the catalog models for brand.
func (d *Data) ModelsForBrand(brand string) []string {
	if d == nil {
		return nil
	}
	models := d.brandModels[strings.ToLower(strings.TrimSpace(brand))]
	return append([]string(nil), models...)
}

// Brands lists catalog brands (lower-cased) in sorted order.
func (d *Data) Brands() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.brandModels))
	for b := range d.brandModels {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
