package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tunerd/internal/infrastructure/mqtt"
	"github.com/nerrad567/tunerd/internal/tuner"
)

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockMQTT implements MQTTClient and delivers published commands to the
// subscribed handler synchronously.
type mockMQTT struct {
	mu        sync.Mutex
	connected bool
	failPub   bool
	messages  []publishedMessage
	handlers  map[string]mqtt.MessageHandler
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPub {
		return mqtt.ErrNotConnected
	}
	m.messages = append(m.messages, publishedMessage{topic, append([]byte(nil), payload...), qos, retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// deliver simulates an incoming message on a subscribed pattern.
func (m *mockMQTT) deliver(pattern, topic string, payload []byte) error {
	m.mu.Lock()
	h := m.handlers[pattern]
	m.mu.Unlock()
	if h == nil {
		return fmt.Errorf("no handler for %s", pattern)
	}
	return h(topic, payload)
}

func (m *mockMQTT) on(topic string) []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedMessage
	for _, msg := range m.messages {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockMQTT) last(t *testing.T, topic string) publishedMessage {
	t.Helper()
	msgs := m.on(topic)
	if len(msgs) == 0 {
		t.Fatalf("nothing published on %s", topic)
	}
	return msgs[len(msgs)-1]
}

type setCall struct {
	identity, id, value string
}

type mockTuners struct {
	mu      sync.Mutex
	devices []tuner.DeviceInfo
	calls   []setCall
	err     error
	running bool
}

func (m *mockTuners) Devices() []tuner.DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tuner.DeviceInfo(nil), m.devices...)
}

func (m *mockTuners) SetProperty(_ context.Context, identity, id, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, setCall{identity, id, value})
	return m.err
}

func (m *mockTuners) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

const testUUID = "e15966227a85f7a9d61490331843f8fed48ad504"

func testDevice() tuner.DeviceInfo {
	return tuner.DeviceInfo{
		Identity:     testUUID,
		DeviceID:     0x1A2B3C4D,
		Title:        "HDHomeRun(1A2B3C4D) - 192.168.1.10",
		IPAddress:    "192.168.1.10",
		FriendlyName: "HDHomeRun(1A2B3C4D)",
		Override:     tuner.SignalCable,
		TunerCount:   2,
	}
}

func newTestBridge(t *testing.T, tuners *mockTuners) (*Bridge, *mockMQTT) {
	t.Helper()
	client := newMockMQTT()
	b, err := New(Options{Tuners: tuners, MQTT: client, Version: "test", HealthInterval: time.Hour})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, client
}

var topics = mqtt.Topics{}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{MQTT: newMockMQTT()}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New(no tuners) error = %v", err)
	}
	if _, err := New(Options{Tuners: &mockTuners{}}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New(no mqtt) error = %v", err)
	}
}

func TestStart_PublishesKnownDevices(t *testing.T) {
	tuners := &mockTuners{devices: []tuner.DeviceInfo{testDevice()}, running: true}
	b, client := newTestBridge(t, tuners)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msg := client.last(t, topics.TunerState(Protocol, testUUID))
	if !msg.retained || msg.qos != 1 {
		t.Errorf("state retained=%v qos=%d", msg.retained, msg.qos)
	}
	var state StateMessage
	if err := json.Unmarshal(msg.payload, &state); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	if state.UUID != testUUID || state.Device.Override != tuner.SignalCable {
		t.Errorf("state = %+v", state)
	}
	if len(state.Properties) != 6 || state.Properties[5].ID != tuner.PropOverride {
		t.Errorf("properties = %+v", state.Properties)
	}

	if _, ok := client.handlers[topics.AllTunerCommands(Protocol)]; !ok {
		t.Error("command topic not subscribed")
	}

	health := client.on(topics.BridgeHealth(Protocol))
	if len(health) == 0 {
		t.Fatal("no health published")
	}
	var first HealthMessage
	if err := json.Unmarshal(health[0].payload, &first); err != nil {
		t.Fatalf("health payload: %v", err)
	}
	if first.Status != HealthStarting {
		t.Errorf("first health status = %s, want starting", first.Status)
	}
	if got := b.PublishedDevices(); len(got) != 1 || got[0] != testUUID {
		t.Errorf("PublishedDevices() = %v", got)
	}
}

func TestHandleEvent(t *testing.T) {
	b, client := newTestBridge(t, &mockTuners{running: true})
	info := testDevice()
	stateTopic := topics.TunerState(Protocol, testUUID)

	b.HandleEvent(tuner.Event{Type: tuner.EventDeviceAdded, Identity: testUUID, Device: &info})
	info.Override = tuner.SignalTerrestrial
	b.HandleEvent(tuner.Event{Type: tuner.EventDeviceUpdated, Identity: testUUID, Device: &info})

	var state StateMessage
	if err := json.Unmarshal(client.last(t, stateTopic).payload, &state); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	if state.Device.Override != tuner.SignalTerrestrial {
		t.Errorf("override = %v, want DVB-T", state.Device.Override)
	}

	b.HandleEvent(tuner.Event{Type: tuner.EventDeviceRemoved, Identity: testUUID, Device: &info})
	cleared := client.last(t, stateTopic)
	if len(cleared.payload) != 0 || !cleared.retained {
		t.Errorf("removal should publish an empty retained payload, got %q retained=%v", cleared.payload, cleared.retained)
	}
	if len(b.PublishedDevices()) != 0 {
		t.Errorf("PublishedDevices() = %v after removal", b.PublishedDevices())
	}

	res := tuner.ScanResult{Found: 1, Created: 1}
	b.HandleEvent(tuner.Event{Type: tuner.EventScanCompleted, Scan: &res, Time: time.Now()})
	var scan ScanMessage
	if err := json.Unmarshal(client.last(t, topics.DiscoveryEvent(Protocol)).payload, &scan); err != nil {
		t.Fatalf("scan payload: %v", err)
	}
	if scan.ScanID == "" || scan.Result.Created != 1 {
		t.Errorf("scan = %+v", scan)
	}
}

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		setErr    error
		wantCalls []setCall
		wantCode  string
	}{
		{
			name:      "override",
			payload:   `{"id":"cmd-1","fe_override":"DVB-T"}`,
			wantCalls: []setCall{{testUUID, tuner.PropOverride, "DVB-T"}},
		},
		{
			name:    "properties in key order",
			payload: `{"properties":{"zeta":"1","fe_override":"ATSC"}}`,
			wantCalls: []setCall{
				{testUUID, tuner.PropOverride, "ATSC"},
				{testUUID, "zeta", "1"},
			},
		},
		{
			name:     "invalid json",
			payload:  `{"fe_override":`,
			wantCode: ErrCodeInvalidCommand,
		},
		{
			name:     "empty command",
			payload:  `{}`,
			wantCode: ErrCodeInvalidCommand,
		},
		{
			name:      "bad label",
			payload:   `{"fe_override":"DVB-S"}`,
			setErr:    fmt.Errorf("%w: %q", tuner.ErrInvalidSignalType, "DVB-S"),
			wantCalls: []setCall{{testUUID, tuner.PropOverride, "DVB-S"}},
			wantCode:  ErrCodeInvalidValue,
		},
		{
			name:      "unknown device",
			payload:   `{"fe_override":"DVB-T"}`,
			setErr:    tuner.ErrDeviceNotFound,
			wantCalls: []setCall{{testUUID, tuner.PropOverride, "DVB-T"}},
			wantCode:  ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuners := &mockTuners{running: true, err: tt.setErr}
			b, client := newTestBridge(t, tuners)
			if err := b.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			err := client.deliver(topics.AllTunerCommands(Protocol), topics.TunerCommand(Protocol, testUUID), []byte(tt.payload))
			if (err != nil) != (tt.wantCode != "") {
				t.Errorf("handler error = %v, want failure %v", err, tt.wantCode != "")
			}

			if fmt.Sprint(tuners.calls) != fmt.Sprint(tt.wantCalls) {
				t.Errorf("calls = %v, want %v", tuners.calls, tt.wantCalls)
			}

			var ack AckMessage
			if err := json.Unmarshal(client.last(t, topics.TunerAck(Protocol, testUUID)).payload, &ack); err != nil {
				t.Fatalf("ack payload: %v", err)
			}
			if ack.CommandID == "" || ack.UUID != testUUID {
				t.Errorf("ack = %+v", ack)
			}
			if tt.wantCode == "" {
				if ack.Status != AckAccepted || ack.Error != nil {
					t.Errorf("ack = %+v, want accepted", ack)
				}
				return
			}
			if ack.Status != AckFailed || ack.Error == nil || ack.Error.Code != tt.wantCode {
				t.Errorf("ack = %+v, want code %s", ack, tt.wantCode)
			}
		})
	}
}

func TestHandleCommand_KeepsCommandID(t *testing.T) {
	b, client := newTestBridge(t, &mockTuners{running: true})
	if err := b.handleCommand(topics.TunerCommand(Protocol, testUUID), []byte(`{"id":"abc","fe_override":"DVB-C"}`)); err != nil {
		t.Fatalf("handleCommand() error = %v", err)
	}
	var ack AckMessage
	if err := json.Unmarshal(client.last(t, topics.TunerAck(Protocol, testUUID)).payload, &ack); err != nil {
		t.Fatalf("ack payload: %v", err)
	}
	if ack.CommandID != "abc" {
		t.Errorf("CommandID = %q, want abc", ack.CommandID)
	}
}

func TestPublishFailureNotTracked(t *testing.T) {
	b, client := newTestBridge(t, &mockTuners{running: true})
	client.failPub = true

	info := testDevice()
	b.HandleEvent(tuner.Event{Type: tuner.EventDeviceAdded, Identity: testUUID, Device: &info})
	if len(b.PublishedDevices()) != 0 {
		t.Error("failed publish should not be tracked")
	}
}
