package monitor

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
)

// PreviewServer streams the annotated frames as multipart MJPEG over HTTP so
// operators can watch the overlay in a browser. Slow clients drop frames
// rather than backpressuring the capture loop.
type PreviewServer struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func NewPreviewServer() *PreviewServer {
	return &PreviewServer{clients: make(map[chan []byte]struct{})}
}

// Push implements Sink. Never blocks: full client buffers skip the frame.
func (p *PreviewServer) Push(frame source.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.clients {
		select {
		case ch <- frame.Data:
		default:
		}
	}
}

const previewBoundary = "surveillanceframe"

// ServeHTTP streams frames to one client until it disconnects.
func (p *PreviewServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := make(chan []byte, 4)
	p.mu.Lock()
	p.clients[ch] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.clients, ch)
		p.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+previewBoundary)
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", previewBoundary, len(data)); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
