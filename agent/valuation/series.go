package valuation

import (
	"context"
	"time"
)

type SeriesPoint struct {
	Date   time.Time
	Result Result
}

// PriceSeries prices the same device once per date, keeping the caller's order.
// req.SaleDate is ignored.
func (e *Estimator) PriceSeries(ctx context.Context, req Request, dates []time.Time) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(dates))
	for _, d := range dates {
		r := req
		r.SaleDate = d
		out = append(out, SeriesPoint{Date: d, Result: e.Predict(ctx, r)})
	}
	return out
}
