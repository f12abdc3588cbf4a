package tracking

import (
	"image"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TriggerWindow returns the square of radius r around the center of a
// cols×rows frame, clamped to the frame.
func TriggerWindow(cols, rows, r int) image.Rectangle {
	cx, cy := cols/2, rows/2
	return image.Rect(max(cx-r, 0), max(cy-r, 0), min(cx+r, cols), min(cy+r, rows))
}

// Cooldown allows an action at most once per interval.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
}

// NewCooldown creates a Cooldown. A non-positive interval never blocks.
func NewCooldown(interval time.Duration) *Cooldown {
	c := &Cooldown{}
	c.SetInterval(interval)
	return c
}

// SetInterval changes the interval, keeping the limiter when it is unchanged.
func (c *Cooldown) SetInterval(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limiter != nil && interval == c.interval {
		return
	}
	c.interval = interval
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	c.limiter = rate.NewLimiter(limit, 1)
}

// AllowAt reports whether the action may run at now and consumes the slot if so.
func (c *Cooldown) AllowAt(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter.AllowN(now, 1)
}

// Allow is AllowAt(time.Now()).
func (c *Cooldown) Allow() bool {
	return c.AllowAt(time.Now())
}

// ShouldTrigger reports whether a trigger press should click: something was
// detected inside the trigger window, or the chosen target sits within it.
func ShouldTrigger(windowHits int, target *Target, cfg Config) bool {
	if windowHits > 0 {
		return true
	}
	return target != nil && target.Distance < cfg.TriggerFOV
}
