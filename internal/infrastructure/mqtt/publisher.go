// Package mqtt публикует результаты сканирований в брокер.
package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// Config параметры подключения
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // например "plant-monitor/plants"
	Retain      bool
	Timeout     time.Duration
}

type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher отправляет каждый результат в {prefix}/{plantId}
type Publisher struct {
	client  publishClient
	closer  func()
	prefix  string
	retain  bool
	timeout time.Duration
	logger  *zap.Logger
}

// NewPublisher подключается к брокеру
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	log := logger.Named("mqtt")

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(_ paho.Client) {
			log.Info("mqtt connected", zap.String("broker", cfg.Broker))
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, errors.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect to %s", cfg.Broker)
	}

	p := newPublisher(client, cfg, log)
	p.closer = func() { client.Disconnect(250) }
	return p, nil
}

func newPublisher(client publishClient, cfg Config, logger *zap.Logger) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Publisher{
		client:  client,
		prefix:  strings.TrimRight(cfg.TopicPrefix, "/"),
		retain:  cfg.Retain,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// message тело сообщения
type message struct {
	ScanID     string `json:"scanId"`
	PlantID    string `json:"plantId"`
	SensorNode string `json:"sensorNode"`
	Status     string `json:"status"`
	Outcome    string `json:"outcome"`
	Disease    string `json:"disease,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Payload кодирует результат в JSON
func Payload(r entity.ScanResult) ([]byte, error) {
	m := message{
		ScanID:     r.ScanID,
		PlantID:    r.PlantID,
		SensorNode: r.SensorNode,
		Status:     r.Status,
		Outcome:    string(r.Outcome.Kind),
		Disease:    r.Outcome.DiseaseField(),
		Timestamp:  r.FinishedAt.Format(time.RFC3339),
	}
	if r.Err != nil {
		m.Error = r.Err.Error()
	}
	return json.Marshal(m)
}

// Topic тема для растения
func (p *Publisher) Topic(plantID string) string {
	if p.prefix == "" {
		return plantID
	}
	return p.prefix + "/" + plantID
}

// Notify публикует результат сканирования
func (p *Publisher) Notify(ctx context.Context, r entity.ScanResult) error {
	payload, err := Payload(r)
	if err != nil {
		return errors.Wrap(err, "encode scan result")
	}

	token := p.client.Publish(p.Topic(r.PlantID), 1, p.retain, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return errors.Errorf("mqtt publish to %s timed out", p.Topic(r.PlantID))
	}
	return errors.Wrap(token.Error(), "mqtt publish")
}

// Close отключается от брокера
func (p *Publisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}

var _ port.ScanNotifier = (*Publisher)(nil)
