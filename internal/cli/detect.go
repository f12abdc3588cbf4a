package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/internal/log"
	"github.com/teslashibe/colortrack/pkg/debug"
	"github.com/teslashibe/colortrack/pkg/tracking"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

type detectResult struct {
	Body  detection.Detection `json:"body"`
	Heads []tracking.Target   `json:"heads"`
}

func newDetectCommand(root *rootOptions) *cobra.Command {
	var (
		color    string
		maskPath string
		annotate string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "detect IMAGE",
		Short: "Run the color detector on an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			tc := cfg.Tracking
			if color != "" {
				tc.Color = color
			}
			model, err := detection.ModelFor(tc.Color)
			if err != nil {
				return err
			}

			img := gocv.IMRead(args[0], gocv.IMReadColor)
			defer img.Close()
			if img.Empty() {
				return fmt.Errorf("read image %s: empty or unsupported", args[0])
			}

			det := detection.NewColorDetector(tc.Detection, log.L())
			defer det.Close()
			dets, mask, err := det.Detect(&model, img)
			defer mask.Close()
			if err != nil {
				return err
			}

			center := tracking.FrameCenter(img.Cols(), img.Rows())
			perception := tracking.NewPerception(det)
			results := make([]detectResult, 0, len(dets))
			bodies := make([]debug.Body, 0, len(dets))
			for _, d := range dets {
				body := tracking.ScaleTop(d.Rect, tc.BodyTopScale)
				heads, _ := perception.EstimateHeads(&model, body, img, tc)

				r := detectResult{Body: d}
				b := debug.Body{Box: body, Confidence: d.Confidence}
				for _, h := range heads {
					r.Heads = append(r.Heads, tracking.NewTarget(h.X, h.Y, center))
					b.Heads = append(b.Heads, tracking.Point{X: h.X, Y: h.Y}.Image())
					b.HeadBoxes = append(b.HeadBoxes, h.Region)
				}
				results = append(results, r)
				bodies = append(bodies, b)
			}

			if maskPath != "" && !gocv.IMWrite(maskPath, mask) {
				return fmt.Errorf("write mask %s", maskPath)
			}
			if annotate != "" {
				debug.Draw(&img, debug.Overlay{Bodies: bodies, Center: center.Image(), FOV: int(tc.FOVSize)})
				if !gocv.IMWrite(annotate, img) {
					return fmt.Errorf("write annotated image %s", annotate)
				}
			}

			if asJSON {
				enc := json.NewEncoder(out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tX\tY\tW\tH\tHEAD X\tHEAD Y\tDIST")
			for i, r := range results {
				for _, h := range r.Heads {
					fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%.1f\t%.1f\t%.1f\n",
						i, r.Body.X, r.Body.Y, r.Body.W, r.Body.H, h.X, h.Y, h.Distance)
				}
			}
			fmt.Fprintf(tw, "%d detection(s), color %s\n", len(results), model.Name)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "outline color (default from profile)")
	cmd.Flags().StringVar(&maskPath, "mask", "", "write the binary mask to this file")
	cmd.Flags().StringVar(&annotate, "annotate", "", "write the annotated image to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print detections as JSON")
	return cmd
}
