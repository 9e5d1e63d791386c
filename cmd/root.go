package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bassamadnan/mailagent/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "mailagent",
	Short: "LLM-assisted inbox triage, summaries and reply drafts",
	Long: `mailagent categorizes emails, extracts their action items and drafts
replies using a configurable set of prompt templates and an LLM backend
(Gemini or any OpenAI-compatible endpoint).

Run without a subcommand to open the interactive inbox.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
			cfg.DataDir = dir
		}
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

// Execute runs the command tree with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// setupLogging points the logger at the configured log file so output never
// lands on the terminal UI.
func setupLogging() error {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f
	logger = zerolog.New(f).Level(level).With().Timestamp().Logger()
	logger.Info().Str("config", cfg.Path()).Str("provider", cfg.LLM.Provider).Msg("mailagent starting")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "settings file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the inbox, prompts and drafts files")
}
