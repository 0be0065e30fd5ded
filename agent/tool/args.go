package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	contractx "github.com/tanpawarit/trademind/agent/contract"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type predictArgs struct {
	Brand       string `json:"brand" validate:"required"`
	Model       string `json:"model" validate:"required"`
	Storage     string `json:"storage" validate:"required"`
	Has5G       bool   `json:"has_5g"`
	ReleaseDate string `json:"release_date"`
	Grade       string `json:"grade" validate:"omitempty,oneof=B C D E b c d e"`
	SaleDate    string `json:"sale_date"`
}

type recommendArgs struct {
	Budget          float64 `json:"budget" validate:"required,gt=0"`
	BrandPreference string  `json:"brand_preference"`
	MinStorage      *int    `json:"min_storage" validate:"omitempty,gt=0"`
	GradePreference string  `json:"grade_preference" validate:"omitempty,oneof=B C D b c d"`
}

type graphicArgs struct {
	Brand       string   `json:"brand" validate:"required"`
	Model       string   `json:"model" validate:"required"`
	Storage     string   `json:"storage" validate:"required"`
	Has5G       bool     `json:"has_5g"`
	ReleaseDate string   `json:"release_date"`
	Grade       string   `json:"grade" validate:"omitempty,oneof=B C D E b c d e"`
	DateRange   []string `json:"date_range" validate:"required,min=1,max=120,dive,required"`
}

type releaseArgs struct {
	Brand string `json:"brand" validate:"required"`
	Model string `json:"model" validate:"required"`
	Has5G bool   `json:"has_5g"`
}

// decodeArgs moves the model's loosely typed arguments into dst and runs
// the struct's validation tags.
func decodeArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: encode args: %v", contractx.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decode args: %v", contractx.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid %s", contractx.ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	return nil
}

func gradeOrDefault(raw string) contractx.Grade {
	if g, ok := contractx.ParseGrade(raw); ok {
		return g
	}
	return contractx.DefaultGrade
}

func failed(format string, args ...any) contractx.ToolResult {
	return contractx.ToolResult{Error: fmt.Sprintf(format, args...)}
}
