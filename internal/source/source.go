// Package source abstracts the camera or network stream the monitor reads
// frames from. All implementations deliver JPEG-encoded frames; reconnect
// policy belongs to the owner of the source, not the source itself.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frame is one captured video frame. The capture loop owns it exclusively;
// inference jobs receive a value copy and must not mutate Data.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Data       []byte // JPEG bytes
	Width      int
	Height     int
}

// Clone returns a deep copy safe to hand to a background goroutine.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	f.Data = data
	return f
}

// Source delivers frames one at a time. Read blocks until the next frame is
// available, the stream ends, or ctx is cancelled. A Read error terminates
// the capture loop; the caller decides whether to reopen.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Options carries capture tunables shared by all source types.
type Options struct {
	FPS   int
	Width int
}

// Open builds a Source from a spec string: a bare integer selects a local
// device, http(s) URLs are read as MJPEG streams, everything else (rtsp,
// files) goes through ffmpeg.
func Open(spec string, opts Options) (Source, error) {
	if spec == "" {
		return nil, fmt.Errorf("empty source spec")
	}
	if idx, err := strconv.Atoi(spec); err == nil {
		return NewFFmpegSource(deviceInput(idx), opts)
	}
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return NewMJPEGSource(spec)
	}
	return NewFFmpegSource(spec, opts)
}
