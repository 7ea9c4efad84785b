package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

// MQTTUplink republishes confirmed alerts to an edge broker so local
// consumers (sirens, dashboards) can react without going through the API.
type MQTTUplink struct {
	client mqtt.Client
	topic  string
}

// NewMQTTUplink connects to the broker described by cfg. Returns nil without
// error when no broker is configured.
func NewMQTTUplink(cfg config.MQTTConfig) (*MQTTUplink, error) {
	if cfg.Broker == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "sss/alerts"
	}
	return &MQTTUplink{client: cli, topic: topic}, nil
}

// PublishAlert sends the event as JSON on <topic>/<category> with QoS 1.
func (u *MQTTUplink) PublishAlert(ctx context.Context, ev models.AlertEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	token := u.client.Publish(fmt.Sprintf("%s/%s", u.topic, ev.Category), 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *MQTTUplink) Close() {
	if u.client != nil && u.client.IsConnected() {
		u.client.Disconnect(250)
	}
}
