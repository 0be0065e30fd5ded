package recommend

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
	valuationx "github.com/tanpawarit/trademind/agent/valuation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxResults = 5

type ErrorKind string

const (
	KindUnsupportedBrand   ErrorKind = "unsupported_brand"
	KindNoModelsForBrand   ErrorKind = "no_models_for_brand"
	KindNoMatchingModels   ErrorKind = "no_matching_models"
	KindNoneWithinBudget   ErrorKind = "no_recommendations_within_budget"
	KindRecommendationFail ErrorKind = "recommendation_error"
)

// Error is a non-fatal search outcome, returned inside Result.
type Error struct {
	Kind            ErrorKind              `json:"error"`
	Message         string                 `json:"message"`
	Fallback        []contractx.DeviceInfo `json:"fallback_recommendation,omitempty"`
	SupportedBrands []string               `json:"supported_brands,omitempty"`
}

type Result struct {
	Devices []contractx.DeviceInfo
	Err     *Error
}

// Query is one search. An empty GradePreference means B; AnyGrade searches
// every grade instead.
type Query struct {
	Budget          float64
	BrandPreference string
	MinStorage      *int
	GradePreference contractx.Grade
	AnyGrade        bool
}

// Grade is the single grade searched when AnyGrade is false.
func (q Query) Grade() contractx.Grade {
	if g, ok := contractx.ParseGrade(string(q.GradePreference)); ok {
		return g
	}
	return contractx.GradeB
}

// Catalog is the slice of reference data the search reads.
type Catalog interface {
	Brands() []string
	ModelsForBrand(brand string) []string
	LookupReleaseDate(brand, model string, has5g bool) (time.Time, bool)
}

// Pricer yields trade-in prices; *valuation.Estimator satisfies it.
type Pricer interface {
	Predict(ctx context.Context, req valuationx.Request) valuationx.Result
	Today() time.Time
}

// Candidate is one priced combination considered during a single search.
type Candidate struct {
	Brand       string
	Model       string
	Storage     string
	Has5G       bool
	ReleaseDate time.Time
	Grade       contractx.Grade
	TradeIn     float64
	Markup      float64
	Price       float64
}

var defaultReleaseDate = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

type Option func(*Searcher)

func WithMarkup(t MarkupTable) Option {
	return func(s *Searcher) {
		s.markup = t
	}
}

// WithUniform replaces the [0,1) source used by fallback recommendations.
func WithUniform(u func() float64) Option {
	return func(s *Searcher) {
		if u != nil {
			s.uniform = u
		}
	}
}

type Searcher struct {
	catalog Catalog
	pricer  Pricer
	markup  MarkupTable
	uniform func() float64
	title   cases.Caser
}

func NewSearcher(catalog Catalog, pricer Pricer, opts ...Option) *Searcher {
	s := &Searcher{
		catalog: catalog,
		pricer:  pricer,
		markup:  DefaultMarkup(),
		uniform: rand.Float64,
		title:   cases.Title(language.Und),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend returns up to five devices whose retail price fits the budget,
// most expensive first.
func (s *Searcher) Recommend(ctx context.Context, q Query) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recommendation search failed")
			res = s.failure(KindRecommendationFail, fmt.Sprintf("Hubo un error al buscar recomendaciones: %v.", r), q)
		}
		outcome := "ok"
		if res.Err != nil {
			outcome = string(res.Err.Kind)
		}
		metricsx.Recommendations.WithLabelValues(outcome).Inc()
	}()
	return s.recommend(ctx, q)
}

func (s *Searcher) recommend(ctx context.Context, q Query) Result {
	pref := strings.TrimSpace(q.BrandPreference)
	if pref != "" {
		key := strings.ToLower(pref)
		if !valuationx.IsSupportedBrand(key) {
			supported := valuationx.SupportedBrandList()
			return Result{Err: &Error{
				Kind: KindUnsupportedBrand,
				Message: fmt.Sprintf(
					"Lo siento, actualmente no podemos ofrecer recomendaciones para la marca %s. Las marcas soportadas son: %s.",
					pref, strings.Join(supported, ", ")),
				SupportedBrands: supported,
			}}
		}
		if len(s.catalog.ModelsForBrand(key)) == 0 {
			return s.failure(KindNoModelsForBrand, fmt.Sprintf("No encontramos modelos disponibles para la marca %s.", pref), q)
		}
	}

	universe := s.universe(pref)
	if len(universe) == 0 {
		return s.failure(KindNoMatchingModels, "No encontramos modelos disponibles que coincidan con tus criterios.", q)
	}

	candidates := s.price(ctx, universe, storageOptions(q.MinStorage), gradeOptions(q), q.Budget)
	if len(candidates) == 0 {
		return s.failure(KindNoneWithinBudget, fmt.Sprintf(
			"No encontramos dispositivos que cumplan con tus criterios dentro del presupuesto de %s€.",
			strconv.FormatFloat(q.Budget, 'f', -1, 64)), q)
	}

	Rank(candidates)
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	devices := make([]contractx.DeviceInfo, 0, len(candidates))
	for _, c := range candidates {
		devices = append(devices, c.DeviceInfo())
	}
	return Result{Devices: devices}
}

type brandModel struct {
	brand string
	model string
}

// universe lists (display brand, model) pairs, brand prefix removed from model names.
func (s *Searcher) universe(pref string) []brandModel {
	var brands []string
	if pref != "" {
		brands = []string{strings.ToLower(pref)}
	} else {
		for _, b := range s.catalog.Brands() {
			if valuationx.IsSupportedBrand(b) {
				brands = append(brands, b)
			}
		}
	}

	var out []brandModel
	for _, b := range brands {
		display := s.title.String(b)
		for _, name := range s.catalog.ModelsForBrand(b) {
			model := stripBrand(name, b)
			if model == "" {
				continue
			}
			out = append(out, brandModel{brand: display, model: model})
		}
	}
	return out
}

func (s *Searcher) price(ctx context.Context, universe []brandModel, storages []string, grades []contractx.Grade, budget float64) []Candidate {
	today := s.pricer.Today()
	var out []Candidate
	for _, bm := range universe {
		has5g := strings.Contains(bm.model, "5G")
		release, ok := s.catalog.LookupReleaseDate(bm.brand, bm.model, has5g)
		if !ok {
			release = defaultReleaseDate
		}
		for _, storage := range storages {
			for _, grade := range grades {
				res := s.pricer.Predict(ctx, valuationx.Request{
					Brand:       bm.brand,
					Model:       bm.model,
					Storage:     storage,
					Has5G:       has5g,
					ReleaseDate: release,
					Grade:       grade,
					SaleDate:    today,
				})
				tradeIn, ok := res.Value()
				if !ok {
					continue
				}
				markup := s.markup.Factor(bm.brand, grade)
				retail := tradeIn * (1 + markup)
				if retail > budget {
					continue
				}
				out = append(out, Candidate{
					Brand:       bm.brand,
					Model:       bm.model,
					Storage:     storage,
					Has5G:       has5g,
					ReleaseDate: release,
					Grade:       grade,
					TradeIn:     tradeIn,
					Markup:      markup,
					Price:       round2(retail),
				})
			}
		}
	}
	return out
}

// Rank orders candidates by retail price, highest first; ties keep input order.
func Rank(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Price > c[j].Price
	})
}

func (c Candidate) DeviceInfo() contractx.DeviceInfo {
	release := c.ReleaseDate
	price := c.Price
	return contractx.DeviceInfo{
		Brand:          c.Brand,
		Model:          c.Model,
		Storage:        c.Storage,
		Has5G:          contractx.Ptr(c.Has5G),
		ReleaseDate:    &release,
		Grade:          c.Grade,
		EstimatedPrice: &price,
	}
}

func (s *Searcher) failure(kind ErrorKind, msg string, q Query) Result {
	log.Warn().Str("kind", string(kind)).Float64("budget", q.Budget).Msg("recommendation fell back")
	return Result{Err: &Error{
		Kind:     kind,
		Message:  msg,
		Fallback: s.Fallback(q),
	}}
}

func storageOptions(minStorage *int) []string {
	if minStorage != nil && *minStorage > 0 {
		return []string{contractx.FormatStorage(*minStorage)}
	}
	return append([]string(nil), contractx.StorageCapacities...)
}

func gradeOptions(q Query) []contractx.Grade {
	if q.AnyGrade {
		return append([]contractx.Grade(nil), contractx.AllGrades...)
	}
	return []contractx.Grade{q.Grade()}
}

func stripBrand(name, brand string) string {
	name = strings.TrimSpace(name)
	if len(name) > len(brand) && strings.EqualFold(name[:len(brand)], brand) && name[len(brand)] == ' ' {
		return strings.TrimSpace(name[len(brand):])
	}
	return name
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
