package video

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/internal/httpc"
)

// DefaultSnapshotTimeout bounds a single snapshot request
const DefaultSnapshotTimeout = 2 * time.Second

// Snapshot polls an HTTP endpoint that serves one JPEG per request
type Snapshot struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger

	frames atomic.Uint64
	misses atomic.Uint64
}

// NewSnapshot creates a snapshot source. A nil client uses httpc.Client.
func NewSnapshot(url string, client *http.Client, logger *zap.Logger) *Snapshot {
	if client == nil {
		client = httpc.Client
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshot{
		url:     url,
		client:  client,
		timeout: DefaultSnapshotTimeout,
		logger:  logger.Named("snapshot"),
	}
}

// ReadFrame fetches and decodes one JPEG into dst
func (s *Snapshot) ReadFrame(dst *gocv.Mat) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.ReadFrameContext(ctx, dst)
}

// ReadFrameContext is ReadFrame bounded by ctx
func (s *Snapshot) ReadFrameContext(ctx context.Context, dst *gocv.Mat) error {
	body, err := httpc.Fetch(ctx, s.client, s.url)
	if err != nil {
		s.misses.Add(1)
		return fmt.Errorf("snapshot: %w", err)
	}

	img, err := gocv.IMDecode(body, gocv.IMReadColor)
	if err != nil {
		s.misses.Add(1)
		return fmt.Errorf("snapshot decode: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		s.misses.Add(1)
		return ErrNoFrame
	}

	img.CopyTo(dst)
	s.frames.Add(1)
	return nil
}

// Stats returns the number of frames decoded and failed requests
func (s *Snapshot) Stats() (frames, misses uint64) {
	return s.frames.Load(), s.misses.Load()
}
