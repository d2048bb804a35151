// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

const (
	qos             = 0
	subscribeWait   = 5 * time.Second
	disconnectQuiet = 250 // ms
)

// MQTTSource is the push channel: it subscribes to the readings topic and
// forwards connection events and raw payloads to the registered handlers.
// Handlers must be registered before Connect.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	clk    clock.Clock

	mu           sync.RWMutex
	onConnect    func(at time.Time)
	onDisconnect func(err error)
	onReading    func(payload []byte, at time.Time)
}

// NewMQTTSource prepares a source for broker. Nothing is dialed until Connect.
func NewMQTTSource(broker, clientID, topic string, clk clock.Clock) *MQTTSource {
	if clk == nil {
		clk = clock.New()
	}
	s := &MQTTSource{topic: topic, clk: clk}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(s.handleConnect).
		SetConnectionLostHandler(s.handleConnectionLost)

	s.client = mqtt.NewClient(opts)
	return s
}

// OnConnect registers the handler called each time the broker session is up.
func (s *MQTTSource) OnConnect(fn func(at time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = fn
}

// OnDisconnect registers the handler called when the broker connection drops.
func (s *MQTTSource) OnDisconnect(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
}

// OnReading registers the handler called with every payload on the topic.
func (s *MQTTSource) OnReading(fn func(payload []byte, at time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReading = fn
}

// Connect dials the broker. With connect retry enabled the first attempt
// keeps retrying in the background, so an unreachable broker is not an error.
func (s *MQTTSource) Connect() error {
	token := s.client.Connect()
	if token.WaitTimeout(subscribeWait) && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	s.client.Disconnect(disconnectQuiet)
}

// handleConnect runs on every (re)connect; subscriptions are not persisted by
// the clean session, so they are renewed here.
func (s *MQTTSource) handleConnect(c mqtt.Client) {
	log.Printf("transport: connected, subscribing to %s", s.topic)
	token := c.Subscribe(s.topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg)
	})
	go func() {
		if !token.WaitTimeout(subscribeWait) {
			log.Printf("transport: subscribe to %s timed out", s.topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("transport: subscribe to %s failed: %v", s.topic, err)
		}
	}()

	s.mu.RLock()
	fn := s.onConnect
	s.mu.RUnlock()
	if fn != nil {
		fn(s.clk.Now())
	}
}

func (s *MQTTSource) handleConnectionLost(_ mqtt.Client, err error) {
	log.Printf("transport: connection lost: %v", err)
	s.mu.RLock()
	fn := s.onDisconnect
	s.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (s *MQTTSource) handleMessage(msg mqtt.Message) {
	s.mu.RLock()
	fn := s.onReading
	s.mu.RUnlock()
	if fn != nil {
		fn(msg.Payload(), s.clk.Now())
	}
}

// Publisher sends readings to the readings topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher connects to broker and returns a publisher for topic.
func NewPublisher(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	log.Printf("transport: connected to MQTT broker at %s", broker)
	return &Publisher{client: client, topic: topic}, nil
}

// Publish encodes r and sends it without waiting for delivery.
func (p *Publisher) Publish(r telemetry.Reading) error {
	payload, err := telemetry.EncodeReading(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	p.client.Publish(p.topic, qos, false, payload)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiet)
}
