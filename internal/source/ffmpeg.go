package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// FFmpegSource captures frames from a local device or an rtsp/file input via
// an ffmpeg subprocess emitting concatenated JPEGs on stdout.
type FFmpegSource struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	reader *bufio.Reader
	seq    atomic.Uint64
}

// deviceInput maps a device index to the platform's ffmpeg input spec.
func deviceInput(index int) string {
	switch runtime.GOOS {
	case "linux":
		return fmt.Sprintf("/dev/video%d", index)
	case "darwin":
		return fmt.Sprintf("%d", index)
	default:
		return fmt.Sprintf("video=%d", index)
	}
}

// NewFFmpegSource starts ffmpeg and returns once the process is running.
// The first Read blocks until ffmpeg produces its first frame.
func NewFFmpegSource(input string, opts Options) (*FFmpegSource, error) {
	fps := opts.FPS
	if fps <= 0 {
		fps = 15
	}
	width := opts.Width
	if width <= 0 {
		width = 640
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
	}

	switch {
	case strings.HasPrefix(input, "rtsp://") || strings.HasPrefix(input, "rtsps://"):
		args = append(args,
			"-rtsp_transport", "tcp",
			"-stimeout", "5000000",
		)
	case strings.HasPrefix(input, "/dev/video"):
		args = append(args, "-f", "v4l2")
	}

	args = append(args,
		"-i", input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1", fps, width),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Warn("ffmpeg stderr", "output", scanner.Text())
		}
	}()

	return &FFmpegSource{
		cmd:    cmd,
		cancel: cancel,
		reader: bufio.NewReaderSize(stdout, 512*1024),
	}, nil
}

// Read blocks until ffmpeg emits the next frame or the process exits.
func (s *FFmpegSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	data, err := scanJPEG(s.reader)
	if err != nil {
		return Frame{}, fmt.Errorf("read ffmpeg frame: %w", err)
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

func (s *FFmpegSource) Close() error {
	s.cancel()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}
