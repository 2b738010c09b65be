// README: Operator CLI for the generative features; runs the services in-process against the configured AI key.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"nest/internal/ai"
	"nest/internal/config"
	"nest/internal/logger"
)

var (
	apiKeyFlag   string
	envFileFlag  string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:           "nest-cli",
	Short:         "Try NEST trip generation from a terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "AI key; overrides API_KEY, GEMINI_API_KEY and the env file")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "env file checked for VITE_API_KEY / API_KEY")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "debug, info, warn or error")
}

// runtime holds what every subcommand shares.
type runtime struct {
	creds   *config.Credentials
	factory ai.ClientFactory
	log     logger.Logger
	out     io.Writer
}

func newRuntime(cmd *cobra.Command) *runtime {
	creds := config.DefaultCredentials(envFileFlag)
	if apiKeyFlag != "" {
		creds = config.NewCredentials(config.StaticSource(apiKeyFlag))
	}
	return &runtime{
		creds:   creds,
		factory: ai.GeminiFactory{},
		log:     logger.New(logLevelFlag, "console"),
		out:     cmd.OutOrStdout(),
	}
}

func (r *runtime) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nest-cli: %v (%s)\n", err, ai.Classify(err))
		os.Exit(1)
	}
}
