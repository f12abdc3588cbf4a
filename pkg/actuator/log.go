package actuator

import (
	"sync"

	"go.uber.org/zap"
)

// LogActuator is a dry-run device: it logs every command and moves nothing.
// Buttons read from an optional ButtonTracker, or all read as held when Hold is set.
type LogActuator struct {
	logger  *zap.Logger
	buttons *ButtonTracker
	hold    bool

	mu     sync.Mutex
	dx, dy int
	clicks int
}

// NewLogActuator creates a dry-run actuator.
func NewLogActuator(logger *zap.Logger, buttons *ButtonTracker, hold bool) *LogActuator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogActuator{
		logger:  logger.Named("actuator"),
		buttons: buttons,
		hold:    hold,
	}
}

// Move records the motion.
func (a *LogActuator) Move(dx, dy int) error {
	a.mu.Lock()
	a.dx += dx
	a.dy += dy
	a.mu.Unlock()
	a.logger.Debug("move", zap.Int("dx", dx), zap.Int("dy", dy))
	return nil
}

// Click records a press and release.
func (a *LogActuator) Click() error {
	a.mu.Lock()
	a.clicks++
	a.mu.Unlock()
	a.logger.Info("click")
	return nil
}

// Press logs a primary button press.
func (a *LogActuator) Press() error {
	a.logger.Debug("press")
	return nil
}

// Release logs a primary button release.
func (a *LogActuator) Release() error {
	a.logger.Debug("release")
	return nil
}

// IsPressed implements ButtonReader.
func (a *LogActuator) IsPressed(button int) bool {
	if a.hold {
		return true
	}
	if a.buttons == nil {
		return false
	}
	return a.buttons.IsPressed(button)
}

// Totals returns the accumulated motion and click count.
func (a *LogActuator) Totals() (dx, dy, clicks int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dx, a.dy, a.clicks
}
