package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/colortrack/pkg/tracking"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

func TestDefaultsRoundTripThroughViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tracking:
  color: yellow
  mode: smooth
  trigger_delay: 250ms
  smooth:
    reaction_max: 200ms
source:
  kind: snapshot
  url: http://127.0.0.1:8080/frame.jpg
`), 0o600))

	t.Setenv("COLORTRACK_TRACKING_FOV_SIZE", "75")
	t.Setenv("COLORTRACK_TRACKING_MODE", "silent")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yellow", cfg.Tracking.Color)
	assert.Equal(t, tracking.ModeSilent, cfg.Tracking.Mode, "env beats the file")
	assert.Equal(t, 75.0, cfg.Tracking.FOVSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracking.TriggerDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.Tracking.Smooth.ReactionMax)
	assert.Equal(t, 50*time.Millisecond, cfg.Tracking.Smooth.ReactionMin, "defaults fill the rest")
	assert.Equal(t, SourceSnapshot, cfg.Source.Kind)
	assert.Equal(t, "127.0.0.1:8765", cfg.Web.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
tracking:
  color: green
actuator:
  kind: bridge
queue:
  size: 0
`)))

	cfg, err := FromViper(v)
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.True(t, errors.Is(err, detection.ErrUnknownColor))
	assert.Contains(t, err.Error(), "actuator.url")
	assert.Contains(t, err.Error(), "queue.size")
}

func TestSave_RoundTrip(t *testing.T) {
	for _, ext := range []string{"yaml", "json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile."+ext)

			want := Default()
			want.Tracking.Mode = tracking.ModeSmooth
			want.Tracking.SilentCooldown = 90 * time.Millisecond
			want.Tracking.Smooth.Wind = 4.5
			want.Actuator = ActuatorConfig{Kind: ActuatorBridge, URL: "ws://127.0.0.1:9000/ws"}
			require.NoError(t, Save(path, want))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, *got)
		})
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Source.Kind = "ndi"
	err := Save(filepath.Join(t.TempDir(), "p.yaml"), cfg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSettings_FormatsDurations(t *testing.T) {
	s := flatten("", Settings(Default()))
	assert.Equal(t, "500ms", s["tracking.trigger_delay"])
	assert.Equal(t, "normal", s["tracking.mode"])
	assert.Equal(t, "127.0.0.1:8765", s["web.addr"], "squashed fields sit on the parent")
	assert.Equal(t, 15, s["tracking.detection.kernel_width"])
}
