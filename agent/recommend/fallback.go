package recommend

import (
	"math"
	"strings"
	"time"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

type priceBand struct {
	low    float64
	high   float64
	models []string
}

var fallbackBands = []priceBand{
	{low: 0, high: 200, models: []string{"Xiaomi Redmi 10C", "Samsung Galaxy A12", "Xiaomi Redmi Note 9"}},
	{low: 200, high: 400, models: []string{"Samsung Galaxy A22 5G", "Xiaomi Redmi Note 11", "Samsung Galaxy A13 5G"}},
	{low: 400, high: 700, models: []string{"Apple iPhone 11", "Samsung Galaxy S20 FE 5G", "Xiaomi 11T"}},
	{low: 700, high: 1000, models: []string{"Apple iPhone 13", "Samsung Galaxy S21 5G", "Xiaomi 11T Pro"}},
	{low: 1000, high: math.Inf(1), models: []string{"Apple iPhone 14 Pro", "Samsung Galaxy S23 Ultra", "Xiaomi 13 Pro 5G"}},
}

var (
	fallbackStorageGB   = []int{64, 128, 256}
	fallbackReleaseDate = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Fallback builds a budget-band recommendation without touching the
// estimator. It never fails; a negative budget yields an empty list.
func (s *Searcher) Fallback(q Query) []contractx.DeviceInfo {
	if q.Budget < 0 || math.IsNaN(q.Budget) {
		return []contractx.DeviceInfo{}
	}
	band := bandFor(q.Budget)

	storages := make([]string, 0, len(fallbackStorageGB))
	for _, gb := range fallbackStorageGB {
		if q.MinStorage == nil || gb >= *q.MinStorage {
			storages = append(storages, contractx.FormatStorage(gb))
		}
	}
	if len(storages) == 0 {
		storages = []string{contractx.FormatStorage(fallbackStorageGB[0])}
	}

	grade := q.Grade()

	low, high := band.priceRange(q.Budget)
	out := make([]contractx.DeviceInfo, 0, len(band.models))
	for _, name := range band.models {
		brand, model, _ := strings.Cut(name, " ")
		price := round2(low + s.uniform()*(high-low))
		if price > q.Budget {
			price = round2(q.Budget)
		}
		release := fallbackReleaseDate
		out = append(out, contractx.DeviceInfo{
			Brand:          brand,
			Model:          model,
			Storage:        storages[pick(s.uniform(), len(storages))],
			Has5G:          contractx.Ptr(strings.Contains(model, "5G")),
			ReleaseDate:    &release,
			Grade:          grade,
			EstimatedPrice: &price,
		})
	}
	return out
}

func bandFor(budget float64) priceBand {
	for _, b := range fallbackBands {
		if budget >= b.low && budget < b.high {
			return b
		}
	}
	return fallbackBands[len(fallbackBands)-1]
}

// priceRange is [low + 20% of the band, min(budget, high-10)]; the open
// band spans up to the budget itself.
func (b priceBand) priceRange(budget float64) (float64, float64) {
	top := budget
	if !math.IsInf(b.high, 1) {
		top = math.Min(budget, b.high-10)
	}
	low := b.low + 0.2*(top-b.low)
	if !math.IsInf(b.high, 1) {
		low = b.low + 0.2*(b.high-b.low)
	}
	if low > top {
		low, top = top, low
	}
	return low, top
}

func pick(u float64, n int) int {
	i := int(u * float64(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
