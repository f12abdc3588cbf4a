package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/colortrack/internal/config"
	"github.com/teslashibe/colortrack/internal/log"
	"github.com/teslashibe/colortrack/pkg/app"
	"github.com/teslashibe/colortrack/pkg/tracking"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var (
		mode  string
		color string
		dry   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tracking loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if mode != "" {
				m, err := tracking.ParseMode(mode)
				if err != nil {
					return err
				}
				cfg.Tracking.Mode = m
			}
			if color != "" {
				cfg.Tracking.Color = color
			}
			if dry {
				cfg.Actuator.Kind = config.ActuatorLog
			}

			path := root.configFile
			if path == "" {
				path = "colortrack.yaml"
			}
			a, err := app.New(*cfg, log.L(), app.WithProfilePath(path))
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if err := a.Init(ctx); err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "aim mode: normal, silent or smooth")
	cmd.Flags().StringVar(&color, "color", "", "outline color")
	cmd.Flags().BoolVar(&dry, "dry-run", false, "log motion instead of sending it")
	return cmd
}
