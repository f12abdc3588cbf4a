package detection

import (
	"fmt"
	"sort"
	"sync"

	"gocv.io/x/gocv"
)

// HSV is an OpenCV hue/saturation/value triple (hue is 0-180)
type HSV [3]uint8

// Scalar converts the triple for use with gocv.InRangeWithScalar
func (h HSV) Scalar() gocv.Scalar {
	return gocv.NewScalar(float64(h[0]), float64(h[1]), float64(h[2]), 0)
}

// ColorModel is an inclusive HSV range. Models are values and never mutated.
type ColorModel struct {
	Name  string
	Lower HSV
	Upper HSV
}

// Contains reports whether a pixel falls inside the range
func (m ColorModel) Contains(p HSV) bool {
	for i := range p {
		if p[i] < m.Lower[i] || p[i] > m.Upper[i] {
			return false
		}
	}
	return true
}

// Outline colors used by the supported games
var colorModels = map[string]ColorModel{
	"yellow": {Name: "yellow", Lower: HSV{30, 125, 150}, Upper: HSV{30, 255, 255}},
	"purple": {Name: "purple", Lower: HSV{144, 106, 172}, Upper: HSV{160, 255, 255}},
}

// ModelFor returns the HSV model for a named color
func ModelFor(name string) (ColorModel, error) {
	m, ok := colorModels[name]
	if !ok {
		return ColorModel{}, fmt.Errorf("%w %q", ErrUnknownColor, name)
	}
	return m, nil
}

// Colors returns the supported color names, sorted
func Colors() []string {
	names := make([]string, 0, len(colorModels))
	for name := range colorModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// State owns the active color model. A failed load leaves the detector
// without a model so detection degrades to empty results.
type State struct {
	mu      sync.RWMutex
	model   *ColorModel
	loadErr error
}

// NewState creates a state and loads the named color
func NewState(color string) (*State, error) {
	s := &State{}
	return s, s.Load(color)
}

// Load replaces the model with the one for color
func (s *State) Load(color string) error {
	m, err := ModelFor(color)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.model = nil
		s.loadErr = fmt.Errorf("load hsv model: %w", err)
		return s.loadErr
	}
	s.model = &m
	s.loadErr = nil
	return nil
}

// Model returns the active model, or nil when none is loaded
func (s *State) Model() *ColorModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// LoadError returns the error from the last Load, if any
func (s *State) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}
