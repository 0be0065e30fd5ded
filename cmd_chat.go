package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	nodex "github.com/tanpawarit/trademind/agent/nodes/orchestrator"
)

var (
	chatConversationID string
	chatMetricsAddr    string
)

// chatCmd runs an interactive conversation over stdin
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant over stdin",
	Long: `Start a conversation and read one user message per line.

Type "salir" or send EOF to finish.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatConversationID, "id", "", "conversation id (default: random uuid)")
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "also serve Prometheus metrics on this address")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := loadDomain(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	if chatMetricsAddr != "" {
		go func() {
			if err := serveMetrics(ctx, chatMetricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	orch, err := newOrchestrator(ctx, d)
	if err != nil {
		return err
	}

	id, welcome, err := orch.Begin(ctx, chatConversationID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", welcome)
	log.Info().Str("conversation_id", id).Msg("conversation started")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "salir") {
			break
		}

		reply, err := orch.HandleMessage(ctx, id, line)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s\n\n", reply)
		case errors.Is(err, contractx.ErrOracleUnavailable):
			log.Error().Err(err).Str("conversation_id", id).Msg("assistant unavailable")
			fmt.Fprintf(out, "%s\n\n", nodex.FallbackReply)
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
	return scanner.Err()
}
