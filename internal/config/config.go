package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	MinIO     MinIOConfig     `yaml:"minio"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Source    SourceConfig    `yaml:"source"`
	Vision    VisionConfig    `yaml:"vision"`
	Detection DetectionConfig `yaml:"detection"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	APIKey      string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// MQTTConfig configures the optional edge alert uplink. Disabled when Broker
// is empty.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Sender    string `yaml:"sender"`
	Password  string `yaml:"password"`
	Recipient string `yaml:"recipient"`
}

func (s SMTPConfig) Enabled() bool {
	return s.Sender != "" && s.Recipient != ""
}

// SourceConfig describes the camera or stream to monitor. URL may be a local
// device index ("0"), an http(s) MJPEG endpoint, or an rtsp URL.
type SourceConfig struct {
	URL        string `yaml:"url"`
	FPS        int    `yaml:"fps"`
	FrameWidth int    `yaml:"frame_width"`
}

type VisionConfig struct {
	ModelsDir         string  `yaml:"models_dir"`
	WeaponThreshold   float64 `yaml:"weapon_threshold"`
	PersonThreshold   float64 `yaml:"person_threshold"`
	EnableEmotion     bool    `yaml:"enable_emotion"`
	EnableViolence    bool    `yaml:"enable_violence"`
	ViolenceClipLen   int     `yaml:"violence_clip_len"`
	EmotionFrameEvery int     `yaml:"emotion_frame_every"`
}

// DetectionConfig carries the pipeline tunables: scheduler cadence, overlay
// smoothing, debounce and cooldown windows.
type DetectionConfig struct {
	Interval              int               `yaml:"interval"` // frames between inference submissions
	BoxLifetime           time.Duration     `yaml:"box_lifetime"`
	ConfirmationWindow    time.Duration     `yaml:"confirmation_window"`
	ConfirmationThreshold int               `yaml:"confirmation_threshold"`
	CrowdThreshold        int               `yaml:"crowd_threshold"`
	SuspiciousEmotions    []string          `yaml:"suspicious_emotions"`
	EmotionConfidence     float64           `yaml:"emotion_confidence"`
	ViolenceThreshold     float64           `yaml:"violence_threshold"`
	Cooldown              time.Duration     `yaml:"cooldown"`
	CooldownPerCategory   map[string]string `yaml:"cooldown_per_category"`
}

// CategoryCooldown resolves the cooldown for a category, falling back to the
// global Cooldown when no per-category override parses.
func (d DetectionConfig) CategoryCooldown(category string) time.Duration {
	if raw, ok := d.CooldownPerCategory[category]; ok {
		if dur, err := time.ParseDuration(raw); err == nil {
			return dur
		}
	}
	return d.Cooldown
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable
// overrides. A .env file next to the working directory is honoured when
// present (credentials are expected to come from the environment, not the
// YAML file).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 8082
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.Source.FPS == 0 {
		cfg.Source.FPS = 15
	}
	if cfg.Source.FrameWidth == 0 {
		cfg.Source.FrameWidth = 640
	}
	if cfg.Vision.WeaponThreshold == 0 {
		cfg.Vision.WeaponThreshold = 0.6
	}
	if cfg.Vision.PersonThreshold == 0 {
		cfg.Vision.PersonThreshold = 0.5
	}
	if cfg.Vision.ViolenceClipLen == 0 {
		cfg.Vision.ViolenceClipLen = 16
	}
	if cfg.Vision.EmotionFrameEvery == 0 {
		cfg.Vision.EmotionFrameEvery = 2
	}
	if cfg.Detection.Interval == 0 {
		cfg.Detection.Interval = 4
	}
	if cfg.Detection.BoxLifetime == 0 {
		cfg.Detection.BoxLifetime = 4 * time.Second
	}
	if cfg.Detection.ConfirmationWindow == 0 {
		cfg.Detection.ConfirmationWindow = 2 * time.Second
	}
	if cfg.Detection.ConfirmationThreshold == 0 {
		cfg.Detection.ConfirmationThreshold = 2
	}
	if cfg.Detection.CrowdThreshold == 0 {
		cfg.Detection.CrowdThreshold = 5
	}
	if len(cfg.Detection.SuspiciousEmotions) == 0 {
		cfg.Detection.SuspiciousEmotions = []string{"angry", "fear"}
	}
	if cfg.Detection.EmotionConfidence == 0 {
		cfg.Detection.EmotionConfidence = 0.7
	}
	if cfg.Detection.ViolenceThreshold == 0 {
		cfg.Detection.ViolenceThreshold = 0.8
	}
	if cfg.Detection.Cooldown == 0 {
		cfg.Detection.Cooldown = 3 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SSS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SSS_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("SSS_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SSS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SSS_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SSS_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SSS_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SSS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SSS_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SSS_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SSS_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SSS_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("SSS_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("SSS_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("SSS_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	// Sensitive email credentials come from the environment preferentially.
	if v := os.Getenv("SSS_EMAIL"); v != "" {
		cfg.SMTP.Sender = v
	}
	if v := os.Getenv("SSS_EMAIL_PASS"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("SSS_EMAIL_TO"); v != "" {
		cfg.SMTP.Recipient = v
	}
}
