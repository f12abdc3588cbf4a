package detection

import (
	"image"
	"math"
)

// Region is a merged bounding box with the mean center of its members
type Region struct {
	Rect
	Center image.Point
}

// MergeOptions tunes MergeRects
type MergeOptions struct {
	// MaxCenterDistance additionally requires member centers to lie within
	// this many pixels of the anchor center. Zero keeps overlap-only merging.
	MaxCenterDistance int
}

// MergeRects merges overlapping boxes in a single greedy pass.
//
// Each unconsumed box becomes an anchor and absorbs every later or earlier
// unconsumed box that overlaps the anchor's original rectangle. Absorbed boxes
// do not look for further overlaps themselves, so a chain A-B-C where only
// A-B and B-C overlap yields two regions. The merged box is the union of its
// members and the center is the truncated mean of their centers.
func MergeRects(rects []Rect, centers []image.Point, opts MergeOptions) []Region {
	n := min(len(rects), len(centers))
	used := make([]bool, n)
	merged := make([]Region, 0, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		anchor := rects[i]
		box := anchor
		sumX, sumY, count := centers[i].X, centers[i].Y, 1

		for j := 0; j < n; j++ {
			if i == j || used[j] {
				continue
			}
			if !anchor.Overlaps(rects[j]) {
				continue
			}
			if opts.MaxCenterDistance > 0 && centerDistance(centers[i], centers[j]) > float64(opts.MaxCenterDistance) {
				continue
			}
			box = box.Union(rects[j])
			sumX += centers[j].X
			sumY += centers[j].Y
			count++
			used[j] = true
		}

		used[i] = true
		merged = append(merged, Region{
			Rect:   box,
			Center: image.Pt(sumX/count, sumY/count),
		})
	}

	return merged
}

func centerDistance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
