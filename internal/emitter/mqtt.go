package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/config"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

// Encoder serializes an update payload
type Encoder func(v any) ([]byte, error)

// NewEncoder returns the encoder for a payload format ("json" or "msgpack")
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case "", "json":
		return json.Marshal, nil
	case "msgpack":
		return msgpack.Marshal, nil
	default:
		return nil, fmt.Errorf("emitter: unknown payload format %q", format)
	}
}

// BrokerURL adds the tcp:// scheme to host:port brokers
func BrokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// MQTTEmitter publishes session updates to the MQTT broker
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	encode Encoder
	Client mqtt.Client // Exported for control plane

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	errors    uint64
	connected bool
}

// NewMQTTEmitter creates a new MQTT emitter
func NewMQTTEmitter(cfg config.MQTTConfig) (*MQTTEmitter, error) {
	encode, err := NewEncoder(cfg.Payload)
	if err != nil {
		return nil, err
	}
	return &MQTTEmitter{
		cfg:       cfg,
		encode:    encode,
		published: make(map[string]uint64),
	}, nil
}

// Connect establishes connection to MQTT broker
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	broker := BrokerURL(e.cfg.Broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		slog.Info("emitter: mqtt connection established",
			"broker", broker,
			"client_id", e.cfg.ClientID,
			"auto_reconnect", "enabled")
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("emitter: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", broker,
			"max_retry_interval", "30s")
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("emitter: connecting to mqtt broker", "broker", broker)

	token := e.Client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("emitter: mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("emitter: mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Publish publishes an update to {updates topic}/{kind}
func (e *MQTTEmitter) Publish(u updatebus.Update) error {
	if !e.isConnected() {
		e.countError()
		return fmt.Errorf("emitter: mqtt not connected")
	}

	topic := fmt.Sprintf("%s/%s", e.cfg.Topics.Updates, u.Kind)
	qos := e.cfg.QoS["updates"]

	payload, err := e.encode(u)
	if err != nil {
		e.countError()
		return fmt.Errorf("emitter: failed to encode update: %w", err)
	}

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("emitter: publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("emitter: publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("emitter: update published",
		"topic", topic,
		"qos", qos,
		"sequence", u.Sequence,
		"size", len(payload),
	)

	return nil
}

// Run forwards updates from r until ctx is done or r is closed. Only the
// newest update is kept while a publish is in progress.
func (e *MQTTEmitter) Run(ctx context.Context, r updatebus.Receiver) error {
	go func() {
		<-ctx.Done()
		r.Close()
	}()

	for {
		u, ok := r.Receive()
		if !ok {
			return nil
		}
		if err := e.Publish(u); err != nil {
			slog.Debug("emitter: dropping update", "kind", u.Kind, "error", err)
		}
	}
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250) // 250ms grace period
		slog.Info("emitter: mqtt disconnected")
	}

	e.setConnected(false)
	return nil
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64)
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
