package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/trademind/pkg/config"
	_ "github.com/tanpawarit/trademind/pkg/logger/autoload"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "trademind",
	Short: "Used-smartphone trading assistant",
	Long: `TradeMind helps users sell their used smartphone or buy a refurbished one.

Available commands:
  chat      - Talk to the assistant over stdin
  predict   - Price one device
  recommend - Search devices within a budget
  series    - Price one device over a list of dates
  metrics   - Serve Prometheus metrics`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configx.SetEnvFile(envFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to the .env file (default ./.env)")
	rootCmd.AddCommand(chatCmd, predictCmd, recommendCmd, seriesCmd, metricsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
