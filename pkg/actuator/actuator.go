// Package actuator drives the pointing device that carries out aim decisions.
//
// Interfaces are kept small so consumers depend only on what they use: the
// step queue needs a Mover, the trigger needs a Clicker, and the tracker
// reads buttons through a ButtonReader.
package actuator

import "errors"

// ErrNotConnected is returned when a command is sent to a device that is not connected.
var ErrNotConnected = errors.New("actuator: not connected")

// Button indices reported by the device.
const (
	ButtonLeft = iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward

	NumButtons
)

// Mover applies a relative cursor motion in device counts.
type Mover interface {
	Move(dx, dy int) error
}

// Clicker drives the primary button.
type Clicker interface {
	Click() error
	Press() error
	Release() error
}

// ButtonReader reports physical button state.
type ButtonReader interface {
	IsPressed(button int) bool
}

// Actuator is the composite interface for full device control.
type Actuator interface {
	Mover
	Clicker
	ButtonReader
}

var (
	_ Actuator = (*LogActuator)(nil)
	_ Actuator = (*Bridge)(nil)
)
