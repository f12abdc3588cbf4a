package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/colortrack/internal/config"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out(cmd))
			enc.SetIndent("", "  ")
			return enc.Encode(config.Settings(*cfg))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save FILE",
		Short: "Write the effective profile to FILE (.yaml, .json or .toml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(args[0], *cfg); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "saved %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "colors",
		Short: "List supported outline colors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range detection.Colors() {
				fmt.Fprintln(out(cmd), c)
			}
			return nil
		},
	})
	return cmd
}
