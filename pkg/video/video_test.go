package video

import (
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"0", 0},
		{" 2 ", 2},
		{"-1", "-1"},
		{"clip.mp4", "clip.mp4"},
		{"rtsp://10.0.0.2/stream", "rtsp://10.0.0.2/stream"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseDevice(tc.in), tc.in)
	}
}

func TestOpenCapture_MissingFile(t *testing.T) {
	_, err := OpenCapture("/nonexistent/clip.mp4", CaptureOptions{}, nil)
	assert.Error(t, err)
}

func encodedFrame(t *testing.T) []byte {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(10, 10, 30, 30), color.RGBA{R: 255, A: 255}, -1)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	require.NoError(t, err)
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func TestSnapshot_ReadFrame(t *testing.T) {
	jpeg := encodedFrame(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/frame.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpeg)
		case "/garbage":
			_, _ = w.Write([]byte("not a jpeg"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	s := NewSnapshot(srv.URL+"/frame.jpg", srv.Client(), nil)
	require.NoError(t, s.ReadFrame(&dst))
	assert.Equal(t, 48, dst.Rows())
	assert.Equal(t, 64, dst.Cols())
	assert.Equal(t, 3, dst.Channels())

	assert.Error(t, NewSnapshot(srv.URL+"/missing", srv.Client(), nil).ReadFrame(&dst))
	assert.Error(t, NewSnapshot(srv.URL+"/garbage", srv.Client(), nil).ReadFrame(&dst))

	frames, misses := s.Stats()
	assert.Equal(t, uint64(1), frames)
	assert.Zero(t, misses)
}
