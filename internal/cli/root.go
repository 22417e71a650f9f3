package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"messaging-service/internal/config"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
}

// Load reads configuration from the files named by the flags and the environment.
func (o *RootOptions) Load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewRootCommand creates the messaging-service command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "messaging-service",
		Short:         "Multi-recipient messaging with per-recipient read tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to a dotenv file; missing is ignored")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
