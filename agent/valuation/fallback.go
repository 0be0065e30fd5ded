package valuation

import (
	"math"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

const (
	fallbackBaseMin   = 800.0
	fallbackBaseRange = 400.0
)

var fallbackGradeFactors = map[contractx.Grade]float64{
	contractx.GradeB: 0.8,
	contractx.GradeC: 0.6,
	contractx.GradeD: 0.4,
	contractx.GradeE: 0.2,
}

// FallbackFactor is the deterministic part of the fallback price:
// max(0.4, 1 - days/365*0.2) times the grade factor (0.5 for unknown grades).
func FallbackFactor(days int, grade contractx.Grade) float64 {
	age := math.Max(0.4, 1-(float64(days)/365*0.2))
	gf, ok := fallbackGradeFactors[grade]
	if !ok {
		gf = 0.5
	}
	return age * gf
}

// FallbackPrice draws a base price in [800, 1200) from u, a uniform [0,1)
// sample, and applies FallbackFactor.
func FallbackPrice(days int, grade contractx.Grade, u float64) float64 {
	base := fallbackBaseMin + fallbackBaseRange*u
	return round2(base * FallbackFactor(days, grade))
}
