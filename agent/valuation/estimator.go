package valuation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
)

type ErrorKind string

const (
	KindUnsupportedBrand   ErrorKind = "unsupported_brand"
	KindModelNotFound      ErrorKind = "model_not_found"
	KindModelLoadingFailed ErrorKind = "model_loading_failed"
	KindPredictionError    ErrorKind = "prediction_error"
)

// Error is a non-fatal estimator outcome. It is returned as a value inside
// Result, never as a Go error.
type Error struct {
	Kind            ErrorKind `json:"error"`
	Message         string    `json:"message"`
	FallbackPrice   *float64  `json:"fallback_price,omitempty"`
	SupportedBrands []string  `json:"supported_brands,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

type Request struct {
	Brand       string
	Model       string
	Storage     string
	Has5G       bool
	ReleaseDate time.Time // zero means released on the sale date
	Grade       contractx.Grade
	SaleDate    time.Time // zero means today
}

// Result holds either Price or Err.
type Result struct {
	Price float64
	Err   *Error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Value returns the model price, or the fallback price when one is attached.
func (r Result) Value() (float64, bool) {
	if r.Err == nil {
		return r.Price, true
	}
	if r.Err.FallbackPrice != nil {
		return *r.Err.FallbackPrice, true
	}
	return 0, false
}

// ModelCatalog resolves model names to reference codes.
type ModelCatalog interface {
	ModelCode(name string) (float64, bool)
}

// ModelSource hands out the regressor of a brand.
type ModelSource interface {
	Get(ctx context.Context, brand string) (Regressor, error)
}

type Option func(*Estimator)

// WithUniform replaces the [0,1) source used for fallback base prices.
func WithUniform(u func() float64) Option {
	return func(e *Estimator) {
		if u != nil {
			e.uniform = u
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		if now != nil {
			e.now = now
		}
	}
}

type Estimator struct {
	catalog ModelCatalog
	models  ModelSource
	uniform func() float64
	now     func() time.Time
}

func NewEstimator(catalog ModelCatalog, models ModelSource, opts ...Option) *Estimator {
	e := &Estimator{
		catalog: catalog,
		models:  models,
		uniform: rand.Float64,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) Today() time.Time {
	return contractx.Date(e.now())
}

// Predict prices one device on one sale date.
func (e *Estimator) Predict(ctx context.Context, req Request) Result {
	res := e.predict(ctx, req)
	outcome := "ok"
	if res.Err != nil {
		outcome = string(res.Err.Kind)
	}
	metricsx.Predictions.WithLabelValues(outcome).Inc()
	return res
}

func (e *Estimator) predict(ctx context.Context, req Request) Result {
	sale := req.SaleDate
	if sale.IsZero() {
		sale = e.now()
	}
	sale = contractx.Date(sale)
	release := req.ReleaseDate
	if release.IsZero() {
		release = sale
	}
	grade := req.Grade
	if grade == "" {
		grade = contractx.DefaultGrade
	}

	days := DaysBetween(release, sale)
	if contractx.Date(release).After(sale) {
		log.Warn().
			Time("release_date", release).
			Time("sale_date", sale).
			Msg("release date after sale date, clamped age to 0")
	}

	brand := strings.ToLower(strings.TrimSpace(req.Brand))
	if _, ok := SupportedBrands[brand]; !ok {
		supported := SupportedBrandList()
		return Result{Err: &Error{
			Kind: KindUnsupportedBrand,
			Message: fmt.Sprintf(
				"Lo siento, actualmente no podemos ofrecer predicciones para dispositivos de la marca %s. Las marcas soportadas son: %s.",
				req.Brand, strings.Join(supported, ", ")),
			SupportedBrands: supported,
		}}
	}

	code, resolved, ok := e.resolveModel(req.Model, req.Has5G)
	if !ok {
		log.Warn().Str("brand", brand).Str("model", req.Model).Msg("model not found in reference data")
		return e.fallback(KindModelNotFound, days, grade, fmt.Sprintf(
			"No encontramos el modelo '%s' en nuestra base de datos. Podemos hacer una estimación general pero no será tan precisa.",
			req.Model))
	}

	reg, err := e.models.Get(ctx, brand)
	if err != nil {
		log.Error().Err(err).Str("brand", brand).Msg("valuation model unavailable")
		return e.fallback(KindModelLoadingFailed, days, grade, fmt.Sprintf(
			"Hubo un problema al cargar el modelo de predicción para %s. Utilizaremos una estimación general.",
			req.Brand))
	}

	price, err := score(reg, code, req.Storage, days, sale, grade)
	if err != nil {
		log.Error().Err(err).Str("brand", brand).Str("model", resolved).Msg("price prediction failed")
		return e.fallback(KindPredictionError, days, grade, fmt.Sprintf(
			"Hubo un error al calcular la predicción: %s. Utilizaremos una estimación general.",
			err))
	}

	log.Debug().Str("brand", brand).Str("model", resolved).Float64("price", price).Msg("price predicted")
	return Result{Price: price}
}

// resolveModel tries "<model> 5G" first for 5G devices, then the bare name.
func (e *Estimator) resolveModel(model string, has5g bool) (float64, string, bool) {
	model = strings.TrimSpace(model)
	if model == "" || e.catalog == nil {
		return 0, "", false
	}
	if has5g {
		with5G := model
		if !strings.Contains(model, "5G") {
			with5G = model + " 5G"
		}
		if code, ok := e.catalog.ModelCode(with5G); ok {
			return code, with5G, true
		}
	}
	bare := strings.TrimSpace(strings.ReplaceAll(model, " 5G", ""))
	if code, ok := e.catalog.ModelCode(bare); ok {
		return code, bare, true
	}
	return 0, "", false
}

func score(reg Regressor, code float64, storage string, days int, sale time.Time, grade contractx.Grade) (price float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("regressor panic: %v", r)
		}
	}()

	features, err := Features(code, storage, days, sale, grade)
	if err != nil {
		return 0, err
	}
	raw, err := reg.Predict(toFloat32Precision(features))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("regressor returned %v", raw)
	}
	return round2(raw), nil
}

func (e *Estimator) fallback(kind ErrorKind, days int, grade contractx.Grade, msg string) Result {
	price := FallbackPrice(days, grade, e.uniform())
	log.Warn().Str("kind", string(kind)).Float64("fallback_price", price).Msg("using fallback price")
	return Result{Err: &Error{
		Kind:          kind,
		Message:       msg,
		FallbackPrice: &price,
	}}
}
