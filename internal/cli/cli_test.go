package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestPathCommand(t *testing.T) {
	out, err := execute(t, "path", "100", "0", "--seed", "7", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "steps, total (")

	again, err := execute(t, "path", "100", "0", "--seed", "7", "--raw")
	require.NoError(t, err)
	assert.Equal(t, out, again, "same seed, same path")

	out, err = execute(t, "path", "60", "-20", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "steps, total (")

	_, err = execute(t, "path", "ten", "0")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	out, err := execute(t, "config", "show")
	require.NoError(t, err)

	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	tracking := shown["tracking"].(map[string]any)
	assert.Equal(t, "purple", tracking["color"])
	assert.Equal(t, "500ms", tracking["trigger_delay"])

	path := filepath.Join(t.TempDir(), "p.yaml")
	out, err = execute(t, "config", "save", path)
	require.NoError(t, err)
	assert.Contains(t, out, "saved")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Tracking, cfg.Tracking)

	out, err = execute(t, "config", "colors")
	require.NoError(t, err)
	assert.Equal(t, "purple\nyellow\n", out)
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "scene.png")
	maskPath := filepath.Join(dir, "mask.png")

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(300, 200, 340, 300), color.RGBA{R: 230, G: 60, B: 230, A: 255}, -1)
	require.True(t, gocv.IMWrite(imgPath, img))

	out, err := execute(t, "detect", imgPath, "--mask", maskPath, "--json")
	require.NoError(t, err)

	var results []detectResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].Heads)
	assert.InDelta(t, 320, results[0].Heads[0].X, 5)

	mask := gocv.IMRead(maskPath, gocv.IMReadGrayScale)
	defer mask.Close()
	assert.False(t, mask.Empty())

	out, err = execute(t, "detect", imgPath, "--color", "yellow")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "0 detection(s), color yellow"), out)

	_, err = execute(t, "detect", filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
