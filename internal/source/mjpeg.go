package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// MJPEGSource reads frames from an HTTP MJPEG endpoint (e.g. a mobile IP
// webcam's /video URL). It scans the body for raw JPEG markers rather than
// parsing multipart boundaries, which tolerates the non-standard framing
// many phone camera apps emit.
type MJPEGSource struct {
	url    string
	resp   *http.Response
	reader *bufio.Reader
	seq    atomic.Uint64
}

// NewMJPEGSource connects to the endpoint and verifies the response before
// returning, so camera-connection failures surface synchronously to the
// caller.
func NewMJPEGSource(url string) (*MJPEGSource, error) {
	client := &http.Client{
		// No overall timeout: the body is a never-ending stream. Connect
		// failures are bounded by the transport's dial timeout.
		Transport: http.DefaultTransport,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("connect mjpeg stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg stream returned status %d", resp.StatusCode)
	}

	return &MJPEGSource{
		url:    url,
		resp:   resp,
		reader: bufio.NewReaderSize(resp.Body, 512*1024),
	}, nil
}

// Read blocks until the next JPEG frame arrives on the stream.
func (s *MJPEGSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	data, err := scanJPEG(s.reader)
	if err != nil {
		if err == io.EOF {
			return Frame{}, fmt.Errorf("mjpeg stream ended: %w", err)
		}
		return Frame{}, fmt.Errorf("read mjpeg frame: %w", err)
	}

	frame := Frame{
		Seq:        s.seq.Add(1),
		CapturedAt: time.Now(),
		Data:       data,
	}
	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}
	return frame, nil
}

func (s *MJPEGSource) Close() error {
	return s.resp.Body.Close()
}
