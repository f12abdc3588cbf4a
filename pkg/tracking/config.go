package tracking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/colortrack/pkg/movement"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

// Mode selects how an aim decision becomes motion.
type Mode string

const (
	ModeNormal Mode = "normal" // One scaled step per frame
	ModeSilent Mode = "silent" // Flick, click, flick back
	ModeSmooth Mode = "smooth" // Humanized WindMouse path
)

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNormal, ModeSilent, ModeSmooth:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Config holds all tunable parameters for aiming and triggering.
type Config struct {
	// Detection
	Color     string           `mapstructure:"color" json:"color"`
	Detection detection.Config `mapstructure:"detection" json:"detection"`

	// Loop
	Mode      Mode    `mapstructure:"mode" json:"mode"`
	TargetFPS float64 `mapstructure:"target_fps" json:"target_fps"`
	DebugFPS  float64 `mapstructure:"debug_fps" json:"debug_fps"` // Dashboard frame rate, 0 disables

	// Buttons
	EnableAim     bool `mapstructure:"enable_aim" json:"enable_aim"`
	EnableTrigger bool `mapstructure:"enable_trigger" json:"enable_trigger"`
	AimButton     int  `mapstructure:"aim_button" json:"aim_button"`
	TriggerButton int  `mapstructure:"trigger_button" json:"trigger_button"`

	// Head estimation
	OffsetX      float64 `mapstructure:"offset_x" json:"offset_x"` // % of cropped width
	OffsetY      float64 `mapstructure:"offset_y" json:"offset_y"` // % of cropped height
	BodyTopScale float64 `mapstructure:"body_top_scale" json:"body_top_scale"`
	TopCrop      float64 `mapstructure:"top_crop" json:"top_crop"`
	SideCrop     float64 `mapstructure:"side_crop" json:"side_crop"`
	HeadMarginX  int     `mapstructure:"head_margin_x" json:"head_margin_x"`
	HeadMarginY  int     `mapstructure:"head_margin_y" json:"head_margin_y"`

	// Normal aim
	FOVSize   float64 `mapstructure:"fov_size" json:"fov_size"`
	SmoothFOV float64 `mapstructure:"smooth_fov" json:"smooth_fov"`
	Smoothing float64 `mapstructure:"smoothing" json:"smoothing"`
	XSpeed    float64 `mapstructure:"x_speed" json:"x_speed"`
	YSpeed    float64 `mapstructure:"y_speed" json:"y_speed"`
	MaxSpeed  float64 `mapstructure:"max_speed" json:"max_speed"`

	// Unit conversion
	InGameSens float64 `mapstructure:"in_game_sens" json:"in_game_sens"`
	MouseDPI   float64 `mapstructure:"mouse_dpi" json:"mouse_dpi"`

	// Trigger and silent
	TriggerFOV     float64       `mapstructure:"trigger_fov" json:"trigger_fov"`
	TriggerDelay   time.Duration `mapstructure:"trigger_delay" json:"trigger_delay"`
	SilentCooldown time.Duration `mapstructure:"silent_cooldown" json:"silent_cooldown"`

	// Smooth aim
	Smooth               movement.SmoothConfig `mapstructure:"smooth" json:"smooth"`
	FatigueDecayInterval time.Duration         `mapstructure:"fatigue_decay_interval" json:"fatigue_decay_interval"`
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		Color:     "purple",
		Detection: detection.DefaultConfig(),

		Mode:      ModeNormal,
		TargetFPS: 80,
		DebugFPS:  10,

		EnableAim:     true,
		EnableTrigger: false,
		AimButton:     1, // Right button
		TriggerButton: 1,

		OffsetX:      0,
		OffsetY:      10,
		BodyTopScale: 1.03, // Nudges the box top past hair/helmet speckles
		TopCrop:      0.10,
		SideCrop:     0.10,
		HeadMarginX:  40,
		HeadMarginY:  10,

		FOVSize:   100,
		SmoothFOV: 30,
		Smoothing: 30,
		XSpeed:    3,
		YSpeed:    3,
		MaxSpeed:  1000,

		InGameSens: 0.235,
		MouseDPI:   800,

		TriggerFOV:     5,
		TriggerDelay:   500 * time.Millisecond,
		SilentCooldown: 180 * time.Millisecond,

		Smooth:               movement.DefaultSmoothConfig(),
		FatigueDecayInterval: time.Second,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := detection.ModelFor(c.Color); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		errs = append(errs, err)
	}
	if c.TargetFPS <= 0 {
		errs = append(errs, fmt.Errorf("target_fps must be positive, got %v", c.TargetFPS))
	}
	if c.DebugFPS < 0 {
		errs = append(errs, fmt.Errorf("debug_fps must not be negative, got %v", c.DebugFPS))
	}
	for name, b := range map[string]int{"aim_button": c.AimButton, "trigger_button": c.TriggerButton} {
		if b < 0 || b > 4 {
			errs = append(errs, fmt.Errorf("%s must be in [0,4], got %d", name, b))
		}
	}
	if c.TopCrop < 0 || c.TopCrop >= 1 || c.SideCrop < 0 || c.SideCrop >= 0.5 {
		errs = append(errs, fmt.Errorf("crop factors out of range: top=%v side=%v", c.TopCrop, c.SideCrop))
	}
	if c.HeadMarginX < 0 || c.HeadMarginY < 0 {
		errs = append(errs, fmt.Errorf("head margins must not be negative, got %d/%d", c.HeadMarginX, c.HeadMarginY))
	}
	if c.FOVSize < 0 || c.SmoothFOV < 0 || c.TriggerFOV < 0 {
		errs = append(errs, errors.New("fov radii must not be negative"))
	}
	if c.MouseDPI <= 0 {
		errs = append(errs, fmt.Errorf("mouse_dpi must be positive, got %v", c.MouseDPI))
	}
	if c.MaxSpeed <= 0 {
		errs = append(errs, fmt.Errorf("max_speed must be positive, got %v", c.MaxSpeed))
	}
	if c.TriggerDelay < 0 || c.SilentCooldown < 0 || c.FatigueDecayInterval < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	s := c.Smooth
	if s.MinDelay > s.MaxDelay {
		errs = append(errs, fmt.Errorf("smooth.min_delay %v exceeds max_delay %v", s.MinDelay, s.MaxDelay))
	}
	if s.ReactionMin > s.ReactionMax {
		errs = append(errs, fmt.Errorf("smooth.reaction_min %v exceeds reaction_max %v", s.ReactionMin, s.ReactionMax))
	}
	if s.MinStep > s.MaxStep {
		errs = append(errs, fmt.Errorf("smooth.min_step %v exceeds max_step %v", s.MinStep, s.MaxStep))
	}
	if s.MicroCorrections < 0 {
		errs = append(errs, errors.New("smooth.micro_corrections must not be negative"))
	}
	return errors.Join(errs...)
}
