package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/colortrack/pkg/movement"
	"github.com/teslashibe/colortrack/pkg/tracking"
)

func newPathCommand() *cobra.Command {
	var (
		seed int64
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "path DX DY",
		Short: "Print a humanized motion path for an offset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dx, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("dx: %w", err)
			}
			dy, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("dy: %w", err)
			}

			rng := movement.NewRand(seed)
			cfg := tracking.DefaultConfig().Smooth

			var path []movement.Step
			if raw {
				path = movement.NewWindMouse(rng).Generate(movement.Point{}, movement.Point{X: dx, Y: dy}, movement.DefaultWindParams())
			} else {
				path = humanized(rng, dx, dy, cfg)
			}
			return printPath(cmd, path)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw WindMouse path without humanization")
	return cmd
}

// humanized skips the reaction delay so the printed path is the motion itself.
func humanized(rng movement.Rand, dx, dy float64, cfg movement.SmoothConfig) []movement.Step {
	now := time.Unix(0, 0)
	aimer := movement.NewSmoothAimer(rng, movement.WithClock(func() time.Time { return now }))

	path := aimer.ComputePath(dx, dy, cfg)
	if len(path) == 1 && path[0].IsZero() {
		now = now.Add(cfg.ReactionMax)
		path = aimer.ComputePath(dx, dy, cfg)
	}
	return path
}

func printPath(cmd *cobra.Command, path movement.Path) error {
	tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "STEP\tDX\tDY\tDELAY\t")
	for i, s := range path {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t\n", i, s.DX, s.DY, s.Delay)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	sx, sy := path.Sum()
	fmt.Fprintf(out(cmd), "%d steps, total (%d, %d) over %s\n", len(path), sx, sy, path.Duration())
	return nil
}
