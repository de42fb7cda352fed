package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/captouch/internal/captouch"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	// pendingEvents is how many system events are kept while disconnected.
	pendingEvents = 32
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *eventBuffer
}

// NewRealPublisher creates a publisher connected to the given broker. The
// broker is told to publish an LWT system event if the connection drops.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{pending: newEventBuffer(pendingEvents)}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "LWT", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays system events buffered while disconnected.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	events := p.pending.drain()
	p.mu.Unlock()

	if len(events) == 0 {
		return
	}
	log.Printf("mqtt: connected, replaying %d system events", len(events))
	go func() {
		for _, ev := range events {
			token := c.Publish(TopicSystem, ev.qos, ev.retained, ev.payload)
			if token.WaitTimeout(publishTimeout) && token.Error() != nil {
				log.Printf("mqtt: replay: %v", token.Error())
			}
		}
	}()
}

// Notify publishes a telemetry record at QoS 0 without waiting for the
// network. It returns captouch.ErrNotConnected while disconnected.
func (p *RealPublisher) Notify(b []byte) error {
	if !p.client.IsConnectionOpen() {
		return captouch.ErrNotConnected
	}

	token := p.client.Publish(TopicRecords, 0, false, b)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish record: %w", err)
		}
	default:
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker. While
// disconnected the event is buffered and replayed on reconnection.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.pending.push(pendingEvent{payload: payload, qos: 1, retained: event.Retained})
		p.mu.Unlock()
		return nil
	}

	// QoS 1 (at-least-once): lifecycle events should not be lost.
	token := p.client.Publish(TopicSystem, 1, event.Retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
