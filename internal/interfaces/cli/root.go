// Package cli implements the flavatix operations CLI: migrations and
// offline wheel generation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lawrns/flavatix/internal/config"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	OutputJSON bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config     *config.Config
	Logger     logging.Logger
	OutputJSON bool
}

// NewRootCommand creates the root cobra command with global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "flavatix",
		Short:   "Flavatix wheel service CLI — migrations and wheel operations",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "configs/config.yaml", "config file path")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.OutputJSON, "json", false, "print results as JSON")

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newWheelCommand())

	return cmd
}

// persistentPreRun loads configuration, builds the logger, and stores the
// CLIContext on the command's context.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	var cfg *config.Config
	var err error
	if _, statErr := os.Stat(opts.ConfigPath); os.IsNotExist(statErr) {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(opts.ConfigPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  opts.LogLevel,
		Format: "console",
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	cliCtx := &CLIContext{
		Config:     cfg,
		Logger:     logger,
		OutputJSON: opts.OutputJSON,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, fmt.Errorf("CLI context not initialized")
	}
	return cliCtx, nil
}

// PrintResult writes v to stdout, as indented JSON when --json is set or a
// fallback line otherwise.
func (c *CLIContext) PrintResult(v interface{}) error {
	if c.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Println(v)
	return err
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
