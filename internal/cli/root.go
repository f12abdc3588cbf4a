// Package cli implements the colortrack command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/colortrack/internal/config"
	"github.com/teslashibe/colortrack/internal/log"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "colortrack",
		Short:         "Color-outline target tracking with humanized pointer motion",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "profile file (default ./colortrack.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	cmd.AddCommand(
		newRunCommand(opts),
		newDetectCommand(opts),
		newPathCommand(),
		newConfigCommand(opts),
	)
	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	cmd := NewRootCommand()
	err := cmd.Execute()
	log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the profile and starts logging from it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log.Init(cfg.Log)
	return cfg, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
