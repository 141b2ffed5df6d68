package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/config"
	"github.com/ziadkadry99/promptgenie/internal/logging"
)

var (
	cfgFile    string
	dotenvFile string
	verbose    bool
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "promptgenie",
	Short: "Retrieval-augmented system prompt generator",
	Long: `promptgenie turns a rough prompt idea into a polished system prompt.
It asks clarifying questions, retrieves similar reference prompts from a
vector index built from a corpus of real system prompts, and has a language
model synthesize the final prompt. It runs as an HTTP API, an MCP server for
AI agents, or from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(dotenvFile)
	},
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&dotenvFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogger replaces the package logger according to cfg and --verbose.
func setupLogger(cfg *config.Config) error {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	l, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	logger = l
	return nil
}
