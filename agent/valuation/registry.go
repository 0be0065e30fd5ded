package valuation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitryikh/leaves"
	"github.com/rs/zerolog/log"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
	artifactx "github.com/tanpawarit/trademind/pkg/artifact"
	"golang.org/x/sync/singleflight"
)

// SupportedBrands maps each brand key to its model artifact.
var SupportedBrands = map[string]string{
	"apple":    "modelo_apple.bin",
	"samsung":  "modelo_samsung.bin",
	"xiaomi":   "modelo_xiaomi.bin",
	"google":   "modelo_google.bin",
	"honor":    "modelo_honor.bin",
	"huawei":   "modelo_huawei.bin",
	"motorola": "modelo_motorola.bin",
	"oneplus":  "modelo_oneplus.bin",
	"oppo":     "modelo_oppo.bin",
}

var supportedBrandList = func() []string {
	out := make([]string, 0, len(SupportedBrands))
	for b := range SupportedBrands {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}()

// SupportedBrandList returns the brand keys in a stable order.
func SupportedBrandList() []string {
	return append([]string(nil), supportedBrandList...)
}

func IsSupportedBrand(brand string) bool {
	_, ok := SupportedBrands[strings.ToLower(strings.TrimSpace(brand))]
	return ok
}

var (
	ErrUnsupportedBrand = errors.New("brand is not supported")
	ErrNilModel         = errors.New("loader returned nil model")
)

// Regressor scores one feature vector.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// Loader produces the regressor for a lower-cased brand key.
type Loader interface {
	Load(ctx context.Context, brand string) (Regressor, error)
}

type LoaderFunc func(ctx context.Context, brand string) (Regressor, error)

func (f LoaderFunc) Load(ctx context.Context, brand string) (Regressor, error) {
	return f(ctx, brand)
}

// Registry loads each brand's regressor at most once per success and shares
// it read-only. Concurrent first requests for a brand share one load; a
// failed load is not remembered, so the next request retries.
type Registry struct {
	loader Loader
	models sync.Map // brand -> Regressor
	group  singleflight.Group
}

func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader}
}

func (r *Registry) Get(ctx context.Context, brand string) (Regressor, error) {
	key := strings.ToLower(strings.TrimSpace(brand))
	if _, ok := SupportedBrands[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBrand, brand)
	}
	if m, ok := r.models.Load(key); ok {
		return m.(Regressor), nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if m, ok := r.models.Load(key); ok {
			return m, nil
		}

		start := time.Now()
		m, err := r.loader.Load(ctx, key)
		if err == nil && m == nil {
			err = ErrNilModel
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		metricsx.ModelLoadDuration.WithLabelValues(key, status).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}

		r.models.Store(key, m)
		log.Info().Str("brand", key).Dur("took", time.Since(start)).Msg("valuation model loaded")
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load model for %s: %w", key, err)
	}
	return v.(Regressor), nil
}

// XGBoostLoader reads "<prefix>/modelo_<brand>.bin" from an artifact store.
type XGBoostLoader struct {
	store  artifactx.Store
	prefix string
}

func NewXGBoostLoader(store artifactx.Store, prefix string) *XGBoostLoader {
	return &XGBoostLoader{store: store, prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
}

func (l *XGBoostLoader) Load(ctx context.Context, brand string) (Regressor, error) {
	file, ok := SupportedBrands[brand]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBrand, brand)
	}
	name := file
	if l.prefix != "" {
		name = l.prefix + "/" + file
	}

	rc, err := l.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ensemble, err := leaves.XGEnsembleFromReader(bufio.NewReader(rc), false)
	if err != nil {
		return nil, fmt.Errorf("parse xgboost model %s: %w", name, err)
	}
	return &ensembleRegressor{ensemble: ensemble}, nil
}

type ensembleRegressor struct {
	ensemble *leaves.Ensemble
}

func (e *ensembleRegressor) Predict(features []float64) (float64, error) {
	if n := e.ensemble.NFeatures(); len(features) != n {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(features), n)
	}
	return e.ensemble.PredictSingle(features, 0), nil
}
