package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout     = 2 * time.Second
	handshakeTimeout = 5 * time.Second
	pingInterval     = 15 * time.Second
)

// Command is one JSON message sent to the bridge.
type Command struct {
	Cmd string `json:"cmd"` // move, click, press, release
	DX  int    `json:"dx,omitempty"`
	DY  int    `json:"dy,omitempty"`
}

// ButtonEvent is an inbound frame carrying the raw button byte.
type ButtonEvent struct {
	Buttons int `json:"buttons"`
}

// Bridge talks to a device bridge over a websocket. Commands go out as JSON
// and the bridge streams button state back.
type Bridge struct {
	url     string
	buttons *ButtonTracker
	logger  *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewBridge creates a Bridge for the websocket at url. Inbound button frames
// update buttons.
func NewBridge(url string, buttons *ButtonTracker, logger *zap.Logger) *Bridge {
	if buttons == nil {
		buttons = NewButtonTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		url:     url,
		buttons: buttons,
		logger:  logger.Named("bridge"),
	}
}

// Connect dials the bridge.
func (b *Bridge) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial bridge %s: %w", b.url, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	b.logger.Info("connected", zap.String("url", b.url))
	return nil
}

// Connected reports whether a connection is open.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Run reads button frames until ctx is done or the connection drops.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-runCtx.Done()
		if ctx.Err() != nil {
			b.Close()
		}
	}()
	go b.keepAlive(runCtx)

	for {
		var ev ButtonEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.drop(conn)
			return fmt.Errorf("read bridge: %w", err)
		}
		if ev.Buttons < 0 || ev.Buttons > 255 || !b.buttons.Update(byte(ev.Buttons)) {
			b.logger.Debug("ignored button value", zap.Int("value", ev.Buttons))
		}
	}
}

func (b *Bridge) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			conn := b.conn
			var err error
			if conn != nil {
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			}
			b.mu.Unlock()
			if conn == nil || err != nil {
				return
			}
		}
	}
}

// Move implements Mover.
func (b *Bridge) Move(dx, dy int) error {
	return b.send(Command{Cmd: "move", DX: dx, DY: dy})
}

// Click implements Clicker.
func (b *Bridge) Click() error {
	return b.send(Command{Cmd: "click"})
}

// Press implements Clicker.
func (b *Bridge) Press() error {
	return b.send(Command{Cmd: "press"})
}

// Release implements Clicker.
func (b *Bridge) Release() error {
	return b.send(Command{Cmd: "release"})
}

// IsPressed implements ButtonReader.
func (b *Bridge) IsPressed(button int) bool {
	return b.buttons.IsPressed(button)
}

// Close closes the connection. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Bridge) send(cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := b.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Cmd, err)
	}
	return nil
}

// drop forgets conn if it is still the current connection.
func (b *Bridge) drop(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == conn {
		_ = b.conn.Close()
		b.conn = nil
	}
}
