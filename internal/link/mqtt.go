package link

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/luma/internal/monitoring"
	"github.com/banshee-data/luma/internal/protocol"
)

// Presence payloads published by the rider app on <prefix>/presence.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// MQTTOptions configures an MQTTLink.
type MQTTOptions struct {
	Broker   string // e.g. tcp://localhost:1883
	Prefix   string // topic prefix, e.g. luma/helmet-1
	ClientID string
	Username string
	Password string
}

// mqttClient is the part of mqtt.Client the link publishes through.
type mqttClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTLink maps the channels onto topics under a prefix: telemetry and events
// are published, commands and the app's presence are subscribed to. A
// retained presence "online" attaches; "offline" or a lost broker
// connection detaches.
type MQTTLink struct {
	*hub
	opts   MQTTOptions
	client mqttClient
	queue  chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewMQTTLink builds the client; Monitor connects it.
func NewMQTTLink(opts MQTTOptions) *MQTTLink {
	m := newMQTTLink(opts)

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	clientID := opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("luma-helmet-%d", time.Now().Unix())
	}
	co.SetClientID(clientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)
	co.SetConnectTimeout(10 * time.Second)
	co.SetAutoReconnect(true)
	co.SetMaxReconnectInterval(30 * time.Second)
	co.OnConnect = m.onConnect
	co.OnConnectionLost = m.onConnectionLost

	m.client = mqtt.NewClient(co)
	return m
}

func newMQTTLink(opts MQTTOptions) *MQTTLink {
	opts.Prefix = strings.TrimSuffix(opts.Prefix, "/")
	return &MQTTLink{
		hub:   newHub(),
		opts:  opts,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
}

// Topic returns the full topic for a suffix.
func (m *MQTTLink) Topic(suffix string) string {
	return m.opts.Prefix + "/" + suffix
}

func (m *MQTTLink) onConnect(client mqtt.Client) {
	log.Printf("[MQTT] Connected to %s", m.opts.Broker)
	filters := map[string]byte{
		m.Topic("commands"): 0,
		m.Topic("presence"): 1,
	}
	token := client.SubscribeMultiple(filters, m.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("[MQTT] Subscribe timeout for %s", m.opts.Prefix)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("[MQTT] Subscribe error: %v", err)
	}
}

func (m *MQTTLink) onConnectionLost(_ mqtt.Client, err error) {
	log.Printf("[MQTT] Connection lost: %v (will auto-reconnect)", err)
	m.setAttached(false)
}

func (m *MQTTLink) onMessage(_ mqtt.Client, msg mqtt.Message) {
	m.handle(msg.Topic(), msg.Payload())
}

func (m *MQTTLink) handle(topic string, payload []byte) {
	switch topic {
	case m.Topic("presence"):
		switch strings.TrimSpace(string(payload)) {
		case PresenceOnline:
			m.setAttached(true)
		case PresenceOffline:
			m.setAttached(false)
		}
	case m.Topic("commands"):
		m.publish(Inbound{Kind: Command, Payload: append([]byte(nil), payload...)})
	}
}

func (m *MQTTLink) inject(payload []byte) {
	m.publish(Inbound{Kind: Command, Payload: payload})
}

func (m *MQTTLink) Send(ch protocol.Channel, payload []byte) error {
	return m.enqueue(m.queue, ch, payload)
}

// Monitor connects to the broker and publishes queued packets until ctx is
// done. The client reconnects on its own after the first connect.
func (m *MQTTLink) Monitor(ctx context.Context) error {
	token := m.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("MQTT connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect failed: %w", err)
	}
	defer m.client.Disconnect(250)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case frame := <-m.queue:
			m.publishFrame(frame)
		}
	}
}

// publishFrame routes a framed packet to its topic. Publishing is fire and
// forget at QoS 0.
func (m *MQTTLink) publishFrame(frame []byte) {
	if !m.client.IsConnected() {
		m.dropped.Add(1)
		return
	}
	ch := protocol.Channel(frame[0])
	var topic string
	switch ch {
	case protocol.Telemetry:
		topic = m.Topic("telemetry")
	case protocol.Events:
		topic = m.Topic("events")
	default:
		monitoring.Debugf("mqtt: no topic for channel %s", ch)
		return
	}
	m.client.Publish(topic, 0, false, frame[1:])
}

func (m *MQTTLink) Close() error {
	m.once.Do(func() {
		close(m.done)
		m.shutdown()
	})
	return nil
}

func (m *MQTTLink) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, "mqtt", m.hub, m)
}
