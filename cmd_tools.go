package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	toolx "github.com/tanpawarit/trademind/agent/tool"
)

var deviceFlags struct {
	brand       string
	model       string
	storage     string
	has5G       bool
	releaseDate string
	grade       string
}

var (
	predictSaleDate string
	seriesDates     []string

	recommendBudget     float64
	recommendBrand      string
	recommendMinStorage int
	recommendGrade      string
)

// predictCmd prices one device through the predict_price tool
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Price one device",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := deviceArgs()
		if predictSaleDate != "" {
			in["sale_date"] = predictSaleDate
		}
		return runTool(cmd, toolx.ToolPredictPrice, in)
	},
}

// seriesCmd prices one device on every date given
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Price one device over a list of dates",
	Long: `Price one device on every date of --dates.

Dates are accepted as DD-MM-YYYY, YYYY-MM-DD, DD/MM/YYYY or MM/YYYY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := deviceArgs()
		dates := make([]any, 0, len(seriesDates))
		for _, d := range seriesDates {
			dates = append(dates, d)
		}
		in["date_range"] = dates
		return runTool(cmd, toolx.ToolGraphicDict, in)
	},
}

// recommendCmd searches devices within a budget
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Search devices within a budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := map[string]any{
			"budget":           recommendBudget,
			"brand_preference": recommendBrand,
			"grade_preference": strings.ToUpper(recommendGrade),
		}
		if recommendMinStorage > 0 {
			in["min_storage"] = recommendMinStorage
		}
		return runTool(cmd, toolx.ToolRecommendDevice, in)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{predictCmd, seriesCmd} {
		f := cmd.Flags()
		f.StringVar(&deviceFlags.brand, "brand", "", "device brand")
		f.StringVar(&deviceFlags.model, "model", "", "device model")
		f.StringVar(&deviceFlags.storage, "storage", "", "storage capacity, e.g. 128GB")
		f.BoolVar(&deviceFlags.has5G, "5g", false, "device supports 5G")
		f.StringVar(&deviceFlags.releaseDate, "release-date", "", "release date (default: looked up)")
		f.StringVar(&deviceFlags.grade, "grade", "C", "condition grade B, C, D or E")
		_ = cmd.MarkFlagRequired("brand")
		_ = cmd.MarkFlagRequired("model")
		_ = cmd.MarkFlagRequired("storage")
	}
	predictCmd.Flags().StringVar(&predictSaleDate, "sale-date", "", "sale date (default: today)")
	seriesCmd.Flags().StringSliceVar(&seriesDates, "dates", nil, "comma separated sale dates")
	_ = seriesCmd.MarkFlagRequired("dates")

	f := recommendCmd.Flags()
	f.Float64Var(&recommendBudget, "budget", 0, "maximum price")
	f.StringVar(&recommendBrand, "brand", "", "preferred brand")
	f.IntVar(&recommendMinStorage, "min-storage", 0, "minimum storage in GB")
	f.StringVar(&recommendGrade, "grade", "B", "grade preference B, C or D")
	_ = recommendCmd.MarkFlagRequired("budget")
}

func deviceArgs() map[string]any {
	in := map[string]any{
		"brand":   deviceFlags.brand,
		"model":   deviceFlags.model,
		"storage": deviceFlags.storage,
		"has_5g":  deviceFlags.has5G,
		"grade":   strings.ToUpper(deviceFlags.grade),
	}
	if deviceFlags.releaseDate != "" {
		in["release_date"] = deviceFlags.releaseDate
	}
	return in
}

// runTool answers one tool call the way the assistant would see it.
func runTool(cmd *cobra.Command, tool string, args map[string]any) error {
	ctx := cmd.Context()

	d, err := loadDomain(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	_, executor := d.tools()
	results, err := executor.Execute(ctx, []contractx.ToolRequest{{ID: "cli", Tool: tool, Args: args}})
	if err != nil {
		return err
	}
	if len(results) != 1 {
		return fmt.Errorf("tool=%s returned %d results", tool, len(results))
	}
	res := results[0]
	if res.Error != "" {
		return fmt.Errorf("tool=%s: %s", tool, res.Error)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Result)
}
