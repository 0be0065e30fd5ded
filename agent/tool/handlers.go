package tool

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	recommendx "github.com/tanpawarit/trademind/agent/recommend"
	valuationx "github.com/tanpawarit/trademind/agent/valuation"
)

type PriceOutput struct {
	Price float64 `json:"price"`
}

type DateOutput struct {
	Date string `json:"date"`
}

type ReleaseOutput struct {
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	ReleaseDate string `json:"release_date"`
}

// GraphOutput maps each requested date, as written by the caller, to a
// price or to the estimator error for that date.
type GraphOutput struct {
	GraphData map[string]any `json:"graph_data"`
}

func (e *Executor) predictPrice(ctx context.Context, args map[string]any) contractx.ToolResult {
	var in predictArgs
	if err := decodeArgs(args, &in); err != nil {
		return failed("%v", err)
	}
	req, errResult, ok := e.valuationRequest(in.Brand, in.Model, in.Storage, in.Has5G, in.ReleaseDate, in.Grade)
	if !ok {
		return errResult
	}
	if strings.TrimSpace(in.SaleDate) != "" {
		sale, err := ParseDate(in.SaleDate)
		if err != nil {
			return failed("invalid sale_date: %v", err)
		}
		req.SaleDate = sale
	}

	res := e.pricer.Predict(ctx, req)
	if res.Err != nil {
		return contractx.ToolResult{Result: res.Err}
	}
	return contractx.ToolResult{Result: PriceOutput{Price: res.Price}}
}

func (e *Executor) recommendDevice(ctx context.Context, args map[string]any) contractx.ToolResult {
	var in recommendArgs
	if err := decodeArgs(args, &in); err != nil {
		return failed("%v", err)
	}
	q := recommendx.Query{
		Budget:          in.Budget,
		BrandPreference: strings.TrimSpace(in.BrandPreference),
		MinStorage:      in.MinStorage,
		GradePreference: contractx.GradeB,
	}
	if g, ok := contractx.ParseGrade(in.GradePreference); ok {
		q.GradePreference = g
	}

	res := e.recommender.Recommend(ctx, q)
	if res.Err != nil {
		return contractx.ToolResult{Result: res.Err}
	}
	return contractx.ToolResult{Result: res.Devices}
}

func (e *Executor) graphicDict(ctx context.Context, args map[string]any) contractx.ToolResult {
	var in graphicArgs
	if err := decodeArgs(args, &in); err != nil {
		return failed("%v", err)
	}
	req, errResult, ok := e.valuationRequest(in.Brand, in.Model, in.Storage, in.Has5G, in.ReleaseDate, in.Grade)
	if !ok {
		return errResult
	}

	dates := make([]time.Time, 0, len(in.DateRange))
	for _, raw := range in.DateRange {
		d, err := ParseDate(raw)
		if err != nil {
			return failed("invalid date_range entry: %v", err)
		}
		dates = append(dates, d)
	}

	out := GraphOutput{GraphData: make(map[string]any, len(dates))}
	for i, point := range e.pricer.PriceSeries(ctx, req, dates) {
		key := in.DateRange[i]
		if point.Result.Err != nil {
			out.GraphData[key] = point.Result.Err
			continue
		}
		out.GraphData[key] = point.Result.Price
	}
	return contractx.ToolResult{Result: out}
}

func (e *Executor) releaseDate(args map[string]any) contractx.ToolResult {
	var in releaseArgs
	if err := decodeArgs(args, &in); err != nil {
		return failed("%v", err)
	}
	d := e.releaseFor(in.Brand, in.Model, in.Has5G)
	return contractx.ToolResult{Result: ReleaseOutput{
		Brand:       in.Brand,
		Model:       in.Model,
		ReleaseDate: d.Format(time.DateOnly),
	}}
}

func (e *Executor) valuationRequest(
	brand, model, storage string,
	has5g bool,
	releaseRaw, gradeRaw string,
) (valuationx.Request, contractx.ToolResult, bool) {
	req := valuationx.Request{
		Brand:   strings.TrimSpace(brand),
		Model:   strings.TrimSpace(model),
		Storage: strings.ToUpper(strings.ReplaceAll(storage, " ", "")),
		Has5G:   has5g,
		Grade:   gradeOrDefault(gradeRaw),
	}
	if strings.TrimSpace(releaseRaw) == "" {
		req.ReleaseDate = e.releaseFor(req.Brand, req.Model, has5g)
		log.Debug().Str("brand", req.Brand).Str("model", req.Model).Time("release_date", req.ReleaseDate).Msg("release date looked up for tool call")
		return req, contractx.ToolResult{}, true
	}
	release, err := ParseDate(releaseRaw)
	if err != nil {
		return req, failed("invalid release_date: %v", err), false
	}
	req.ReleaseDate = release
	return req, contractx.ToolResult{}, true
}

// releaseFor never fails; unknown models are assumed two years old.
func (e *Executor) releaseFor(brand, model string, has5g bool) time.Time {
	today := e.pricer.Today()
	if e.releases == nil {
		return today.AddDate(-2, 0, 0)
	}
	return e.releases.ReleaseDate(brand, model, has5g, today)
}
