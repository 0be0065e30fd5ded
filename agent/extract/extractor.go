package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
	promptx "github.com/tanpawarit/trademind/agent/prompt"
	"github.com/xeipuuv/gojsonschema"
)

const (
	targetDevice = "device"
	targetBuying = "buying"
)

var (
	errNotObject = errors.New("payload is not a JSON object")
	errRejected  = errors.New("payload rejected by schema")
)

// Extractor turns a transcript into structured device or buying facts. It
// never fails: any oracle or payload problem returns the prior value.
type Extractor struct {
	oracle  contractx.Oracle
	prompts promptx.Set
	device  *gojsonschema.Schema
	buying  *gojsonschema.Schema
}

func New(oracle contractx.Oracle, prompts promptx.Set) (*Extractor, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: extractor oracle is nil", contractx.ErrValidation)
	}
	device, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(deviceSchema))
	if err != nil {
		return nil, fmt.Errorf("compile device schema: %w", err)
	}
	buying, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(buyingSchema))
	if err != nil {
		return nil, fmt.Errorf("compile buying schema: %w", err)
	}
	return &Extractor{oracle: oracle, prompts: prompts, device: device, buying: buying}, nil
}

// Extract dispatches on intent: sell and graphic fill device facts, buy fills
// buying preferences, anything else leaves both untouched.
func (e *Extractor) Extract(
	ctx context.Context,
	intent contractx.Intent,
	transcript string,
	device contractx.DeviceInfo,
	buying contractx.BuyingInfo,
) (contractx.DeviceInfo, contractx.BuyingInfo) {
	switch intent {
	case contractx.IntentSell, contractx.IntentGraphic:
		return e.ExtractDevice(ctx, transcript, device), buying
	case contractx.IntentBuy:
		return device, e.ExtractBuying(ctx, transcript, buying)
	default:
		return device, buying
	}
}

func (e *Extractor) ExtractDevice(ctx context.Context, transcript string, prior contractx.DeviceInfo) contractx.DeviceInfo {
	payload, ok := e.payload(ctx, targetDevice, promptx.DeviceExtract, transcript, e.device)
	if !ok {
		return prior
	}

	var got contractx.DeviceInfo
	if s, ok := payload["brand"].(string); ok {
		got.Brand = strings.TrimSpace(s)
	}
	if s, ok := payload["model"].(string); ok {
		got.Model = strings.TrimSpace(s)
	}
	if raw, ok := payload["storage"]; ok && raw != nil {
		got.Storage = NormalizeStorage(raw)
		if got.Storage == "" {
			log.Warn().Interface("storage", raw).Msg("discarding unsupported storage capacity")
		}
	}
	if b, ok := payload["has_5g"].(bool); ok {
		got.Has5G = contractx.Ptr(b)
	}
	if s, ok := payload["release_date"].(string); ok {
		got.ReleaseDate = NormalizeReleaseDate(s)
		if got.ReleaseDate == nil && strings.TrimSpace(s) != "" {
			log.Warn().Str("release_date", s).Msg("discarding unparseable release date")
		}
	}
	return MergeDevice(prior, got)
}

func (e *Extractor) ExtractBuying(ctx context.Context, transcript string, prior contractx.BuyingInfo) contractx.BuyingInfo {
	payload, ok := e.payload(ctx, targetBuying, promptx.BuyingExtract, transcript, e.buying)
	if !ok {
		return prior
	}

	var got contractx.BuyingInfo
	budget, ok := payload["budget"].(float64)
	if !ok {
		budget, ok = payload["budge"].(float64)
	}
	if ok && budget > 0 {
		got.Budget = contractx.Ptr(budget)
	}
	if s, ok := payload["brand_preference"].(string); ok {
		got.BrandPreference = strings.TrimSpace(s)
	}
	if raw, ok := payload["min_storage"]; ok && raw != nil {
		got.MinStorage = NormalizeMinStorage(raw)
	}
	if s, ok := payload["grade_preference"].(string); ok {
		got.GradePreference = NormalizeGradePreference(s)
	}
	return MergeBuying(prior, got)
}

// payload asks the oracle and returns the decoded object with any field
// that failed its schema check removed.
func (e *Extractor) payload(
	ctx context.Context,
	target string,
	name promptx.Name,
	transcript string,
	schema *gojsonschema.Schema,
) (map[string]any, bool) {
	system, err := e.prompts.Render(ctx, name, map[string]any{"conversation": transcript})
	if err != nil {
		e.fail(target, "prompt", err, "")
		return nil, false
	}
	reply, err := e.oracle.Ask(ctx, system, nil)
	if err != nil {
		e.fail(target, "oracle", err, "")
		return nil, false
	}

	obj, err := DecodeObject(reply)
	if err != nil {
		e.fail(target, "decode", err, reply)
		return nil, false
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		e.fail(target, "schema", err, reply)
		return nil, false
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" || field == "(root)" {
			e.fail(target, "schema", fmt.Errorf("%w: %s", errRejected, desc.String()), reply)
			return nil, false
		}
		log.Warn().Str("target", target).Str("field", field).Str("reason", desc.Description()).Msg("dropping invalid extracted field")
		metricsx.ExtractionFailures.WithLabelValues(target, "field").Inc()
		delete(obj, field)
	}
	return obj, true
}

func (e *Extractor) fail(target, reason string, err error, reply string) {
	metricsx.ExtractionFailures.WithLabelValues(target, reason).Inc()
	log.Warn().Err(err).Str("target", target).Str("reason", reason).Str("reply", reply).Msg("extraction skipped, keeping prior info")
}

// DecodeObject strips a surrounding code fence and decodes a JSON object.
func DecodeObject(reply string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(StripCodeFence(reply)), &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", errNotObject, v)
	}
	return obj, nil
}

func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// MergeDevice keeps every known prior field and fills the rest from got.
func MergeDevice(prior, got contractx.DeviceInfo) contractx.DeviceInfo {
	out := prior
	if out.Brand == "" {
		out.Brand = got.Brand
	}
	if out.Model == "" {
		out.Model = got.Model
	}
	if out.Storage == "" {
		out.Storage = got.Storage
	}
	if out.Has5G == nil {
		out.Has5G = got.Has5G
	}
	if out.ReleaseDate == nil {
		out.ReleaseDate = got.ReleaseDate
	}
	if out.Grade == "" {
		out.Grade = contractx.DefaultGrade
	}
	return out
}

// MergeBuying keeps every known prior preference. Only a nil budget or
// storage is unknown.
func MergeBuying(prior, got contractx.BuyingInfo) contractx.BuyingInfo {
	out := prior
	if out.Budget == nil {
		out.Budget = got.Budget
	}
	if out.BrandPreference == "" {
		out.BrandPreference = got.BrandPreference
	}
	if out.MinStorage == nil {
		out.MinStorage = got.MinStorage
	}
	if out.GradePreference == "" {
		out.GradePreference = got.GradePreference
	}
	return out
}
