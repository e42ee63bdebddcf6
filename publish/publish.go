package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/angas/fmi-go/config"
	"github.com/angas/fmi-go/fmi"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

type Message struct {
	Topic   string
	Payload []byte
}

type point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Publisher pushes fetched values to an MQTT broker as retained messages.
// A publisher created from a disabled config accepts everything and sends
// nothing.
type Publisher struct {
	client mqtt.Client
	logger *slog.Logger
	prefix string
}

func New(cnfg config.AppConfigMqtt) *Publisher {
	logger := slog.Default().With("module", "publish")
	p := &Publisher{
		logger: logger,
		prefix: cnfg.GetTopicPrefix(),
	}
	if !cnfg.Enabled {
		return p
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cnfg.Host, cnfg.Port))
	opts.SetClientID("fmi-go-" + uuid.NewString())
	opts.SetUsername(cnfg.Username)
	opts.SetPassword(cnfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	p.client = mqtt.NewClient(opts)
	return p
}

func (p *Publisher) Enabled() bool {
	return p.client != nil
}

func (p *Publisher) Connect() error {
	if !p.Enabled() {
		p.logger.Debug("MQTT publishing disabled")
		return nil
	}
	p.logger.Debug("connecting MQTT client")
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("timeout when connecting to MQTT broker")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	return nil
}

func (p *Publisher) Disconnect() {
	if !p.Enabled() {
		return
	}
	p.logger.Info("disconnecting MQTT client")
	p.client.Disconnect(250)
}

// PublishObservations sends the latest valid value of every column.
func (p *Publisher) PublishObservations(station string, t fmi.Table) error {
	return p.publish(ObservationMessages(p.prefix, station, t))
}

// PublishForecast sends the first forecasted hour of every column.
func (p *Publisher) PublishForecast(station string, model fmi.Model, t fmi.Table) error {
	return p.publish(ForecastMessages(p.prefix, station, model, t))
}

func (p *Publisher) publish(msgs []Message) error {
	if !p.Enabled() || len(msgs) == 0 {
		return nil
	}
	for _, m := range msgs {
		token := p.client.Publish(m.Topic, 1, true, m.Payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("timeout when publishing to %s", m.Topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publishing to %s: %w", m.Topic, err)
		}
	}
	p.logger.Debug("published values", slog.Int("messages", len(msgs)))
	return nil
}

func ObservationMessages(prefix, station string, t fmi.Table) []Message {
	var msgs []Message
	for i, col := range t.Columns {
		for r := len(t.Rows) - 1; r >= 0; r-- {
			v := t.Rows[r].Values[i]
			if math.IsNaN(v) {
				continue
			}
			msgs = append(msgs, message(fmt.Sprintf("%s/%s/observation/%s", prefix, station, col), t.Rows[r].Time, v))
			break
		}
	}
	return msgs
}

func ForecastMessages(prefix, station string, model fmi.Model, t fmi.Table) []Message {
	if model == "" {
		model = fmi.ModelHarmonie
	}
	var msgs []Message
	for i, col := range t.Columns {
		for _, row := range t.Rows {
			if math.IsNaN(row.Values[i]) {
				continue
			}
			msgs = append(msgs, message(fmt.Sprintf("%s/%s/forecast/%s/%s", prefix, station, model, col), row.Time, row.Values[i]))
			break
		}
	}
	return msgs
}

func message(topic string, when time.Time, value float64) Message {
	// A point of a time and a finite float can't fail to marshal
	payload, _ := json.Marshal(point{Time: when.UTC(), Value: value})
	return Message{Topic: topic, Payload: payload}
}
