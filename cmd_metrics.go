package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	_ "github.com/tanpawarit/trademind/agent/metrics"
)

var metricsAddr string

// metricsCmd serves the Prometheus registry until interrupted
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Serve Prometheus metrics",
	RunE:  runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAddr, "addr", ":9090", "listen address")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	return serveMetrics(cmd.Context(), metricsAddr)
}

// serveMetrics exposes /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
