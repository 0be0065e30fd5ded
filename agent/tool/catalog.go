package tool

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	recommendx "github.com/tanpawarit/trademind/agent/recommend"
	valuationx "github.com/tanpawarit/trademind/agent/valuation"
)

const (
	ToolPredictPrice    = "predict_price"
	ToolRecommendDevice = "recommend_device"
	ToolTodayDate       = "get_today_date"
	ToolGraphicDict     = "generate_graphic_dict"
	ToolReleaseDate     = "get_release_date"
)

// Pricer is the valuation surface the tools call; *valuation.Estimator
// satisfies it.
type Pricer interface {
	Predict(ctx context.Context, req valuationx.Request) valuationx.Result
	PriceSeries(ctx context.Context, req valuationx.Request, dates []time.Time) []valuationx.SeriesPoint
	Today() time.Time
}

type Recommender interface {
	Recommend(ctx context.Context, q recommendx.Query) recommendx.Result
}

// ReleaseCatalog resolves launch dates; *reference.Data satisfies it.
type ReleaseCatalog interface {
	ReleaseDate(brand, model string, has5g bool, today time.Time) time.Time
}

func Build(pricer Pricer, recommender Recommender, releases ReleaseCatalog) ([]*schema.ToolInfo, *Executor) {
	return Infos(), NewExecutor(pricer, recommender, releases)
}

// Infos describes every tool the assistant model may call.
func Infos() []*schema.ToolInfo {
	device := func(extra map[string]*schema.ParameterInfo) map[string]*schema.ParameterInfo {
		params := map[string]*schema.ParameterInfo{
			"brand":        {Type: schema.String, Desc: "Marca del dispositivo, por ejemplo Apple o Samsung", Required: true},
			"model":        {Type: schema.String, Desc: "Modelo oficial, por ejemplo iPhone 12 o Galaxy S21", Required: true},
			"storage":      {Type: schema.String, Desc: "Almacenamiento: 32GB, 64GB, 128GB, 256GB, 512GB o 1TB", Required: true},
			"has_5g":       {Type: schema.Boolean, Desc: "Si el dispositivo tiene 5G"},
			"release_date": {Type: schema.String, Desc: "Fecha de lanzamiento (YYYY-MM-DD, DD/MM/YYYY o MM/YYYY)"},
			"grade":        {Type: schema.String, Desc: "Estado del dispositivo", Enum: []string{"B", "C", "D", "E"}},
		}
		for k, v := range extra {
			params[k] = v
		}
		return params
	}

	return []*schema.ToolInfo{
		{
			Name: ToolPredictPrice,
			Desc: "Predice el precio de recompra de un dispositivo usado a partir de sus características.",
			ParamsOneOf: schema.NewParamsOneOfByParams(device(map[string]*schema.ParameterInfo{
				"sale_date": {Type: schema.String, Desc: "Fecha de venta, por defecto hoy"},
			})),
		},
		{
			Name: ToolRecommendDevice,
			Desc: "Recomienda hasta cinco dispositivos reacondicionados dentro de un presupuesto.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"budget":           {Type: schema.Number, Desc: "Presupuesto máximo en euros", Required: true},
				"brand_preference": {Type: schema.String, Desc: "Marca preferida"},
				"min_storage":      {Type: schema.Integer, Desc: "Almacenamiento mínimo en GB"},
				"grade_preference": {Type: schema.String, Desc: "Estado preferido (por defecto B)", Enum: []string{"B", "C", "D"}},
			}),
		},
		{
			Name:        ToolTodayDate,
			Desc:        "Devuelve la fecha de hoy.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: ToolGraphicDict,
			Desc: "Calcula el precio de un dispositivo en cada fecha de una lista para dibujar su evolución.",
			ParamsOneOf: schema.NewParamsOneOfByParams(device(map[string]*schema.ParameterInfo{
				"date_range": {
					Type:     schema.Array,
					Desc:     "Fechas a valorar (DD-MM-YYYY, YYYY-MM-DD, DD/MM/YYYY o MM/YYYY)",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Required: true,
				},
			})),
		},
		{
			Name: ToolReleaseDate,
			Desc: "Obtiene la fecha de lanzamiento de un modelo.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"brand":  {Type: schema.String, Desc: "Marca del dispositivo", Required: true},
				"model":  {Type: schema.String, Desc: "Modelo del dispositivo", Required: true},
				"has_5g": {Type: schema.Boolean, Desc: "Si es la variante 5G"},
			}),
		},
	}
}

// Executor runs tool requests against the valuation core. Bad arguments and
// unknown tools come back as ToolResult.Error so the model can recover.
type Executor struct {
	pricer      Pricer
	recommender Recommender
	releases    ReleaseCatalog
}

var _ contractx.ToolGateway = (*Executor)(nil)

func NewExecutor(pricer Pricer, recommender Recommender, releases ReleaseCatalog) *Executor {
	return &Executor{pricer: pricer, recommender: recommender, releases: releases}
}

func (e *Executor) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	out := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		var res contractx.ToolResult
		if req.ArgsError != "" {
			res = failed("invalid arguments: %s", req.ArgsError)
		} else {
			res = e.run(ctx, req.Tool, req.Args)
		}
		res.ID = req.ID
		res.Tool = req.Tool
		out = append(out, res)
	}
	return out, nil
}

func (e *Executor) run(ctx context.Context, tool string, args map[string]any) contractx.ToolResult {
	switch tool {
	case ToolPredictPrice:
		return e.predictPrice(ctx, args)
	case ToolRecommendDevice:
		return e.recommendDevice(ctx, args)
	case ToolTodayDate:
		return contractx.ToolResult{Result: DateOutput{Date: e.pricer.Today().Format(time.DateOnly)}}
	case ToolGraphicDict:
		return e.graphicDict(ctx, args)
	case ToolReleaseDate:
		return e.releaseDate(args)
	default:
		return failed("tool=%s is not available", tool)
	}
}
