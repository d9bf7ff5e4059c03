package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/KaramelBytes/appforge-cli/internal/config"
	"github.com/KaramelBytes/appforge-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "appforge [description...]",
	Short: "Generate a project tree from a plain-language description",
	Long: `appforge sends a project description to a chat-completion model via OpenRouter,
extracts the JSON file tree from the reply, and writes the files under the output directory.

Without arguments the description is read from one line of standard input.`,
	Example: `  appforge
  appforge "a CLI that converts CSV to JSON, written in Go"
  appforge -o ./todo --model openai/gpt-4o-mini "todo web app with a sqlite backend"
  appforge --dry-run --show-structure "static landing page"`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runBuild,
}

// reportedError marks an error whose diagnostic was already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error { return &reportedError{err: err} }

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var re *reportedError
		if !errors.As(err, &re) {
			ui.Fail(os.Stderr, "Error: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.appforge/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	registerBuildFlags(rootCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	configureLogging(cfg.LogLevel, debug)
	log.WithField("config", cfgFile).Debug("configuration loaded")
	return nil
}
