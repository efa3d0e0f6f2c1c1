package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "matterhub-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// fakeToken is a completed paho token.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakePaho records publishes. Methods the client never calls are left to
// the embedded nil interface.
type fakePaho struct {
	pahomqtt.Client

	mu           sync.Mutex
	connected    bool
	publishErr   error
	messages     []published
	disconnected bool
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return &fakeToken{err: f.publishErr}
	}
	f.messages = append(f.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{}
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	f.connected = false
}

func (f *fakePaho) last(t *testing.T) published {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		t.Fatal("no messages published")
	}
	return f.messages[len(f.messages)-1]
}

func newTestClient() (*Client, *fakePaho) {
	fake := &fakePaho{connected: true}
	return newWithClient(testConfig(), fake), fake
}

func TestPublishAttribute(t *testing.T) {
	tests := []struct {
		name      string
		cluster   string
		attribute string
		value     any
		wantTopic string
		wantBody  string
	}{
		{"bool", "on_off", "onOff", true, "matterhub/endpoint/3/on_off/onOff", "true"},
		{"number", "level_control", "currentLevel", uint8(127), "matterhub/endpoint/3/level_control/currentLevel", "127"},
		{"null", "level_control", "currentLevel", nil, "matterhub/endpoint/3/level_control/currentLevel", "null"},
		{"string", "basic_information", "nodeLabel", "Kitchen", "matterhub/endpoint/3/basic_information/nodeLabel", `"Kitchen"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, fake := newTestClient()

			if err := client.PublishAttribute(3, tt.cluster, tt.attribute, tt.value); err != nil {
				t.Fatalf("PublishAttribute() error = %v", err)
			}

			msg := fake.last(t)
			if msg.topic != tt.wantTopic {
				t.Errorf("topic = %q, want %q", msg.topic, tt.wantTopic)
			}
			if string(msg.payload) != tt.wantBody {
				t.Errorf("payload = %s, want %s", msg.payload, tt.wantBody)
			}
			if !msg.retained || msg.qos != 1 {
				t.Errorf("retained=%v qos=%d, want retained qos 1", msg.retained, msg.qos)
			}
		})
	}
}

func TestPublishAttributeUnencodable(t *testing.T) {
	client, _ := newTestClient()
	err := client.PublishAttribute(1, "on_off", "onOff", make(chan int))
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishAvailability(t *testing.T) {
	client, fake := newTestClient()

	if err := client.PublishAvailability(7, false); err != nil {
		t.Fatalf("PublishAvailability() error = %v", err)
	}
	msg := fake.last(t)
	if msg.topic != "matterhub/endpoint/7/availability" || string(msg.payload) != AvailabilityOffline {
		t.Errorf("got %s = %s", msg.topic, msg.payload)
	}

	if err := client.PublishAvailability(7, true); err != nil {
		t.Fatalf("PublishAvailability() error = %v", err)
	}
	if msg := fake.last(t); string(msg.payload) != AvailabilityOnline {
		t.Errorf("payload = %s, want online", msg.payload)
	}
}

func TestPublishValidation(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		payload   []byte
		qos       byte
		connected bool
		wantErr   error
	}{
		{"empty topic", "", []byte("x"), 0, true, ErrInvalidTopic},
		{"invalid qos", "a/b", []byte("x"), 3, true, ErrInvalidQoS},
		{"too large", "a/b", make([]byte, maxPayloadSize+1), 0, true, ErrPublishFailed},
		{"disconnected", "a/b", []byte("x"), 0, false, ErrNotConnected},
		{"ok", "a/b", []byte("x"), 2, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePaho{connected: tt.connected}
			client := newWithClient(testConfig(), fake)

			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishBrokerError(t *testing.T) {
	client, fake := newTestClient()
	fake.publishErr = errors.New("broker said no")

	err := client.PublishRetained("a/b", []byte("x"))
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("error = %v, want ErrPublishFailed", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client, fake := newTestClient()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v", err)
	}

	fake.mu.Lock()
	fake.connected = false
	fake.mu.Unlock()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestConnectionCallbacks(t *testing.T) {
	client, fake := newTestClient()

	var connects int
	var lost error
	client.SetOnConnect(func() { connects++ })
	client.SetOnDisconnect(func(err error) { lost = err })

	client.handleDisconnect(errors.New("eof"))
	if client.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
	if lost == nil || lost.Error() != "eof" {
		t.Errorf("disconnect callback got %v", lost)
	}

	client.handleConnect()
	if connects != 1 {
		t.Errorf("connect callback fired %d times, want 1", connects)
	}
	msg := fake.last(t)
	if msg.topic != (Topics{}).SystemStatus() || !msg.retained {
		t.Errorf("online status not published: %+v", msg)
	}
	var status statusPayload
	if err := json.Unmarshal(msg.payload, &status); err != nil {
		t.Fatalf("status payload: %v", err)
	}
	if status.Status != "online" || status.ClientID != "matterhub-test" {
		t.Errorf("status = %+v", status)
	}
}

func TestClose(t *testing.T) {
	client, fake := newTestClient()

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.disconnected {
		t.Error("paho client not disconnected")
	}
	msg := fake.last(t)
	if !strings.Contains(string(msg.payload), reasonShutdown) {
		t.Errorf("shutdown status = %s", msg.payload)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].String(); got != "ssl://127.0.0.1:1883" {
		t.Errorf("broker = %q", got)
	}
	if opts.ClientID != "matterhub-test" || opts.Username != "bridge" {
		t.Errorf("client id / username = %q / %q", opts.ClientID, opts.Username)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS config not set")
	}
	if !opts.WillEnabled || opts.WillTopic != "matterhub/system/status" || !opts.WillRetained {
		t.Errorf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), reasonUnexpected) {
		t.Errorf("will payload = %s", opts.WillPayload)
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.EndpointAttribute(12, "temperature_measurement", "measuredValue"), "matterhub/endpoint/12/temperature_measurement/measuredValue"},
		{topics.EndpointAvailability(12), "matterhub/endpoint/12/availability"},
		{topics.SystemStatus(), "matterhub/system/status"},
		{topics.AllEndpointAttributes(), "matterhub/endpoint/+/+/+"},
		{topics.AllTopics(), "matterhub/#"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
