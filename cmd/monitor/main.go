package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/alert"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/detect"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/monitor"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/notify"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/observability"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/queue"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/storage"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/threat"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	sessionID := uuid.New()
	slog.Info("starting surveillance monitor",
		"session_id", sessionID,
		"source", cfg.Source.URL,
		"interval", cfg.Detection.Interval,
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Optional MQTT uplink
	uplink, err := notify.NewMQTTUplink(cfg.MQTT)
	if err != nil {
		slog.Warn("mqtt uplink unavailable", "error", err)
	}
	if uplink != nil {
		defer uplink.Close()
	}

	// Email channel
	var mailer alert.Mailer
	if cfg.SMTP.Enabled() {
		mailer = notify.NewSMTPSender(cfg.SMTP)
		slog.Info("email alerts enabled", "recipient", cfg.SMTP.Recipient)
	} else {
		slog.Warn("email alerts disabled, sender credentials not configured")
	}

	// Detection models
	bundler, err := detect.NewRunner(cfg.Vision)
	if err != nil {
		slog.Error("load detection models", "error", err)
		os.Exit(1)
	}
	defer bundler.Close()

	// Video source
	src, err := source.Open(cfg.Source.URL, source.Options{
		FPS:   cfg.Source.FPS,
		Width: cfg.Source.FrameWidth,
	})
	if err != nil {
		slog.Error("open video source", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	evaluator := threat.NewEvaluator(cfg.Detection)

	dispatcher := alert.NewDispatcher(alert.Config{
		Recorder:  db,
		Mailer:    mailer,
		Snapshots: minioStore,
		Publisher: fanOut(producer, uplink),
		UserEmail: cfg.SMTP.Recipient,
		SessionID: sessionID,
		Cooldown: func(category models.Category) time.Duration {
			return cfg.Detection.CategoryCooldown(string(category))
		},
		OnDispatched: func(category models.Category) {
			if category == models.CategoryWeapon {
				evaluator.ResetWeaponConfirmation()
			}
		},
	})

	preview := monitor.NewPreviewServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := monitor.NewScheduler(monitor.SchedulerConfig{
		Source:      src,
		Bundler:     bundler,
		Interval:    cfg.Detection.Interval,
		BoxLifetime: cfg.Detection.BoxLifetime,
		Sink:        preview,
		OnCycle: func(bundle models.Bundle, frame source.Frame) {
			for _, sig := range evaluator.Evaluate(bundle, bundle.At) {
				dispatcher.Dispatch(ctx, sig, frame)
			}
		},
	})

	// Metrics and preview endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/preview", preview)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		slog.Info("monitor metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Run the capture loop until the source fails or we get a signal.
	errCh := make(chan error, 1)
	go func() {
		errCh <- scheduler.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down monitor...")
	case err := <-errCh:
		if err != nil {
			slog.Error("capture loop failed", "error", err)
		}
	}

	scheduler.Stop()
	cancel()
	dispatcher.Drain()
	slog.Info("monitor stopped")
}

// fanOut publishes each alert to NATS and, when configured, the MQTT uplink.
// MQTT failures are logged and do not fail the dispatch.
func fanOut(producer *queue.Producer, uplink *notify.MQTTUplink) alert.Publisher {
	return publisherFunc(func(ctx context.Context, ev models.AlertEvent) error {
		if uplink != nil {
			if err := uplink.PublishAlert(ctx, ev); err != nil {
				slog.Warn("mqtt publish failed", "error", err, "category", ev.Category)
			}
		}
		return producer.PublishAlert(ctx, ev)
	})
}

type publisherFunc func(ctx context.Context, ev models.AlertEvent) error

func (f publisherFunc) PublishAlert(ctx context.Context, ev models.AlertEvent) error {
	return f(ctx, ev)
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
