package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EO-DataHub/eodhp-agent-runner/api/services"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/validation"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	runInput        string
	runAgentID      string
	runPollInterval time.Duration
	runTimeout      time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent once and print the result as JSON",
	Long: `Run the agent once from the terminal with the same defaults and limits as the function,
then print the thread's messages. Useful for checking credentials and agent configuration.`,
	Run: func(cmd *cobra.Command, args []string) {

		commonSetUp()

		if appCfg.Agents.Endpoint == "" {
			log.Fatal().Msg(services.MsgMissingEndpoint)
		}
		if appCfg.Agents.AgentID == "" && !cmd.Flags().Changed("agent-id") {
			log.Fatal().Msg(services.MsgMissingAgentID)
		}

		service, cleanup := newService(prometheus.NewRegistry())
		defer cleanup()

		// Only flags given on the command line override the configured defaults
		body := &services.RunBody{}
		if cmd.Flags().Changed("input") {
			body.Input = &runInput
		}
		if cmd.Flags().Changed("agent-id") {
			body.AgentID = &runAgentID
		}
		if cmd.Flags().Changed("poll-interval") {
			ms := services.Milliseconds(runPollInterval.Milliseconds())
			body.PollIntervalMs = &ms
		}
		if cmd.Flags().Changed("timeout") {
			ms := services.Milliseconds(runTimeout.Milliseconds())
			body.TimeoutMs = &ms
		}

		if errs := validation.New().ValidateStruct(body); errs != nil {
			log.Fatal().Str("details", validation.Summary(errs)).Msg(services.MsgInvalidRequest)
		}

		req := service.NewRunRequest(body, uuid.NewString())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.With().Str("invocation_id", req.InvocationID).Logger()
		ctx = logger.WithContext(ctx)

		result, err := service.RunAgent(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Msg(services.MsgRunFailed)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Failed to write result")
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runInput, "input", "", "message sent to the agent (default from config)")
	runCmd.Flags().StringVar(&runAgentID, "agent-id", "", "agent to run (default AZURE_AI_AGENT_ID)")
	runCmd.Flags().DurationVar(&runPollInterval, "poll-interval", time.Second, "time between run status checks")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", time.Minute, "time to wait for the run to finish")
}
