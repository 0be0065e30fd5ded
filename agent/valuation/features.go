package valuation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

var ErrStorageUnit = errors.New("unrecognized storage unit")

var gradeWeights = map[contractx.Grade]float64{
	contractx.GradeB: 4,
	contractx.GradeC: 3,
	contractx.GradeD: 2,
	contractx.GradeE: 1,
}

// GradeWeight maps a grade to its ordinal feature; unknown grades weigh as C.
func GradeWeight(g contractx.Grade) float64 {
	if w, ok := gradeWeights[g]; ok {
		return w
	}
	return 3
}

// ParseStorage converts "256GB" to 256 and "1TB" to 1000. A bare integer is
// taken as GB. Any other unit is an error.
func ParseStorage(raw string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	mult := 1
	switch {
	case strings.HasSuffix(s, "TB"):
		s, mult = strings.TrimSuffix(s, "TB"), 1000
	case strings.HasSuffix(s, "GB"):
		s = strings.TrimSuffix(s, "GB")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrStorageUnit, raw)
	}
	return n * mult, nil
}

// DaysBetween returns whole days from release to sale, clamped at zero.
func DaysBetween(release, sale time.Time) int {
	days := int(contractx.Date(sale).Sub(contractx.Date(release)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Weekday numbers Monday as 0 through Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Features builds the regressor input:
// [modelCode, storageGB, daysSinceRelease, weekday, month, dayOfYear, gradeWeight].
func Features(modelCode float64, storage string, days int, sale time.Time, grade contractx.Grade) ([]float64, error) {
	gb, err := ParseStorage(storage)
	if err != nil {
		return nil, err
	}
	return []float64{
		modelCode,
		float64(gb),
		float64(days),
		float64(Weekday(sale)),
		float64(sale.Month()),
		float64(sale.YearDay()),
		GradeWeight(grade),
	}, nil
}

// The regressor was trained on float32 inputs.
func toFloat32Precision(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = float64(float32(f))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
