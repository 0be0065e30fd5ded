package extract

import (
	"math"
	"strings"
	"time"

	contractx "github.com/tanpawarit/trademind/agent/contract"
	intentx "github.com/tanpawarit/trademind/agent/intent"
	valuationx "github.com/tanpawarit/trademind/agent/valuation"
)

var qualitativeGrades = map[string]contractx.Grade{
	"buen estado": contractx.GradeB,
	"usado":       contractx.GradeC,
	"danado":      contractx.GradeD,
}

// NormalizeStorage maps a raw capacity onto the accepted set, or "".
// Bare numbers are GB and 1000GB is 1TB.
func NormalizeStorage(raw any) string {
	var gb int
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return ""
		}
		gb = int(v)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), " ", "")
		if s == "" {
			return ""
		}
		n, err := valuationx.ParseStorage(s)
		if err != nil {
			return ""
		}
		gb = n
	default:
		return ""
	}
	s := contractx.FormatStorage(gb)
	if !contractx.IsStorageCapacity(s) {
		return ""
	}
	return s
}

// NormalizeReleaseDate accepts MM/YYYY, YYYY-MM and YYYY-MM-DD. Month-only
// forms land on the first day of the month.
func NormalizeReleaseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	var layout string
	switch {
	case strings.Count(s, "/") == 1:
		layout = "1/2006"
	case strings.Count(s, "-") == 1:
		layout = "2006-1"
	case strings.Count(s, "-") == 2:
		layout = time.DateOnly
	default:
		return nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	d := contractx.Date(t)
	return &d
}

// NormalizeGradePreference accepts B, C or D, or the qualitative terms the
// buying prompt offers.
func NormalizeGradePreference(raw string) contractx.Grade {
	if g, ok := contractx.ParseGrade(raw); ok && g != contractx.GradeE {
		return g
	}
	if g, ok := qualitativeGrades[strings.TrimSpace(intentx.Normalize(raw))]; ok {
		return g
	}
	return ""
}

// NormalizeMinStorage returns whole GB, or nil for anything unusable.
func NormalizeMinStorage(raw any) *int {
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return nil
		}
		return contractx.Ptr(int(v))
	case string:
		n, err := valuationx.ParseStorage(strings.ReplaceAll(v, " ", ""))
		if err != nil || n <= 0 {
			return nil
		}
		return &n
	default:
		return nil
	}
}
