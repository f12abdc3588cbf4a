// Package video provides frame sources for the tracker: local capture
// devices, video files and stream URLs through gocv, and HTTP snapshots.
package video

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var (
	// ErrNoFrame is returned when a source has no frame to hand out.
	ErrNoFrame = errors.New("no frame available")

	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("source closed")
)

// CaptureOptions tunes a capture device. Zero values keep the device defaults.
type CaptureOptions struct {
	Width  int     `mapstructure:"width" json:"width"`
	Height int     `mapstructure:"height" json:"height"`
	FPS    float64 `mapstructure:"fps" json:"fps"`
}

// Capture reads frames from a gocv VideoCapture
type Capture struct {
	device string
	logger *zap.Logger

	mu     sync.Mutex // Protects vc
	vc     *gocv.VideoCapture
	frames uint64
	misses uint64
}

// ParseDevice turns "0" into a camera index and leaves paths and URLs as strings
func ParseDevice(device string) any {
	device = strings.TrimSpace(device)
	if idx, err := strconv.Atoi(device); err == nil && idx >= 0 {
		return idx
	}
	return device
}

// OpenCapture opens a camera index ("0"), a video file or a stream URL
func OpenCapture(device string, opts CaptureOptions, logger *zap.Logger) (*Capture, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vc, err := gocv.OpenVideoCapture(ParseDevice(device))
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open capture %q: device not opened", device)
	}

	if opts.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, opts.FPS)
	}

	c := &Capture{device: device, vc: vc, logger: logger.Named("capture")}
	c.logger.Info("capture opened",
		zap.String("device", device),
		zap.Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)),
		zap.Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)))
	return c, nil
}

// ReadFrame grabs the next frame into dst
func (c *Capture) ReadFrame(dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return ErrClosed
	}
	if ok := c.vc.Read(dst); !ok || dst.Empty() {
		c.misses++
		return ErrNoFrame
	}
	c.frames++
	return nil
}

// Stats returns the number of frames read and failed reads
func (c *Capture) Stats() (frames, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames, c.misses
}

// Close releases the device
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	c.logger.Info("capture closed", zap.String("device", c.device), zap.Uint64("frames", c.frames))
	return err
}
