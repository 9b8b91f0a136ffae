package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/apm-stick/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// DefaultBufferSize is how many messages are kept while disconnected.
	DefaultBufferSize = 256
)

// Config holds broker connection settings.
type Config struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// client is the part of paho.Client the publisher uses.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and sent once it is back.
type RealPublisher struct {
	client client
	now    func() time.Time

	mu        sync.Mutex
	buffer    *ringBuffer
	connects  int
	replaying bool // onConnect is draining the buffer
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
// If the broker is not reachable within the connect timeout the publisher is
// still returned; paho keeps retrying and messages are buffered meanwhile.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "apm-stick"
	}

	p := newPublisher(nil, cfg.BufferSize, time.Now)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     EventOffline,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt: connection lost", "err", err)
		})

	c := paho.NewClient(opts)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		slog.Warn("mqtt: broker not reachable yet, buffering", "broker", cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(c client, bufferSize int, now func() time.Time) *RealPublisher {
	return &RealPublisher{
		client: c,
		now:    now,
		buffer: newRingBuffer(bufferSize),
	}
}

// onConnect runs on every (re)connection. After a reconnect it replaces the
// retained last-will with RECONNECTED, then replays buffered messages in order.
// Messages sent while the replay is running are queued behind it.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connects++
	reconnect := p.connects > 1
	p.replaying = true
	msgs := p.buffer.drainAll()
	p.mu.Unlock()

	if reconnect {
		slog.Info("mqtt: reconnected")
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: EventReconnected})
		if err != nil {
			slog.Warn("mqtt: format reconnected event", "err", err)
		} else {
			p.replay(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: true})
		}
	}

	if len(msgs) > 0 {
		slog.Info("mqtt: replaying buffered messages", "count", len(msgs))
	}
	for {
		for _, m := range msgs {
			p.replay(m)
		}

		p.mu.Lock()
		msgs = p.buffer.drainAll()
		if len(msgs) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

func (p *RealPublisher) replay(m bufferedMsg) {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		slog.Warn("mqtt: replay timeout", "topic", m.topic)
		return
	}
	if err := token.Error(); err != nil {
		slog.Warn("mqtt: replay failed", "topic", m.topic, "err", err)
	}
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// Publish sends a reading to the MQTT broker.
func (p *RealPublisher) Publish(reading logic.Reading) error {
	payload, err := FormatPayload(reading)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained. Only the newest buffered reading
	// survives an outage.
	return p.send(bufferedMsg{topic: Topic, payload: payload, latest: true})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns how many messages are waiting for a connection and how
// many have been dropped because the buffer was full. Readings replaced by
// newer ones are not counted as dropped.
func (p *RealPublisher) Buffered() (pending int, dropped uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len(), p.buffer.dropped
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if pending, _ := p.Buffered(); pending > 0 {
		slog.Warn("mqtt: closing with unsent messages", "count", pending)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
