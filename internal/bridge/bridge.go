package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tunerd/internal/infrastructure/mqtt"
	"github.com/nerrad567/tunerd/internal/tuner"
)

// commandTimeout bounds a single command, including any frontend rebuild.
const commandTimeout = 30 * time.Second

// Publisher is the publishing side of the MQTT client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// TunerService is the subset of *tuner.Manager the bridge uses.
type TunerService interface {
	Devices() []tuner.DeviceInfo
	SetProperty(ctx context.Context, identity, id, value string) error
	Running() bool
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	Tuners TunerService
	MQTT   MQTTClient

	// QoS for state and ack publishes. Default 1.
	QoS byte

	Version        string
	HealthInterval time.Duration
	Logger         Logger
}

// Bridge mirrors tuner state onto MQTT and applies MQTT commands.
type Bridge struct {
	tuners TunerService
	mqtt   MQTTClient
	qos    byte
	health *HealthReporter
	topics mqtt.Topics

	// published tracks uuids with a retained state.
	mu        sync.Mutex
	published map[string]bool

	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once

	logger Logger
}

// New creates a bridge. Call Start to subscribe and publish.
func New(opts Options) (*Bridge, error) {
	if opts.Tuners == nil {
		return nil, fmt.Errorf("%w: tuner service", ErrMissingDependency)
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("%w: MQTT client", ErrMissingDependency)
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		tuners:    opts.Tuners,
		mqtt:      opts.MQTT,
		qos:       qos,
		published: make(map[string]bool),
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    logger,
	}
	b.health = NewHealthReporter(HealthReporterConfig{
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTT,
		Running:   opts.Tuners.Running,
	})
	b.health.logger = logger
	return b, nil
}

// Start subscribes to device commands, publishes the state of every known
// device and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Warn("failed to publish starting status", "error", err)
	}

	topic := b.topics.AllTunerCommands(Protocol)
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", topic)

	devices := b.tuners.Devices()
	for _, info := range devices {
		b.publishState(info)
	}
	b.health.SetDeviceCount(len(devices))

	b.health.Start(ctx)
	b.logger.Info("bridge started", "devices", len(devices))
	return nil
}

// Stop cancels in-flight commands and stops health reporting. Retained
// device states are left in place.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.health.Stop()
		b.logger.Info("bridge stopped")
	})
}

// HandleEvent implements tuner.Listener.
func (b *Bridge) HandleEvent(e tuner.Event) {
	switch e.Type {
	case tuner.EventDeviceAdded, tuner.EventDeviceUpdated:
		if e.Device != nil {
			b.publishState(*e.Device)
		}
	case tuner.EventDeviceRemoved:
		b.clearState(e.Identity)
	case tuner.EventScanCompleted:
		if e.Scan != nil {
			b.publishScan(*e.Scan, e.Time)
		}
	}

	b.mu.Lock()
	count := len(b.published)
	b.mu.Unlock()
	b.health.SetDeviceCount(count)
}

// PublishedDevices returns the uuids with a retained state, sorted.
func (b *Bridge) PublishedDevices() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for id := range b.published {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (b *Bridge) publishState(info tuner.DeviceInfo) {
	payload, err := json.Marshal(NewStateMessage(info))
	if err != nil {
		b.logger.Error("failed to marshal state", "uuid", info.Identity, "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.TunerState(Protocol, info.Identity), payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish state", "uuid", info.Identity, "error", err)
		return
	}
	b.mu.Lock()
	b.published[info.Identity] = true
	b.mu.Unlock()
}

// clearState publishes an empty retained payload, which deletes the
// retained message on the broker.
func (b *Bridge) clearState(id string) {
	if err := b.mqtt.Publish(b.topics.TunerState(Protocol, id), nil, b.qos, true); err != nil {
		b.logger.Warn("failed to clear state", "uuid", id, "error", err)
		return
	}
	b.mu.Lock()
	delete(b.published, id)
	b.mu.Unlock()
}

func (b *Bridge) publishScan(res tuner.ScanResult, at time.Time) {
	b.health.SetLastScan(res)
	if at.IsZero() {
		at = time.Now()
	}
	payload, err := json.Marshal(NewScanMessage(res, at))
	if err != nil {
		b.logger.Error("failed to marshal scan", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.DiscoveryEvent(Protocol), payload, 0, false); err != nil {
		b.logger.Debug("failed to publish scan", "error", err)
	}
}

// handleCommand applies a command received on tunerd/command/hdhomerun/{uuid}
// and publishes the acknowledgement.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	id := mqtt.LastSegment(topic)

	var cmd CommandMessage
	err := json.Unmarshal(payload, &cmd)
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	} else {
		b.logger.Info("received command", "command_id", cmd.ID, "uuid", id)
		err = b.execute(id, cmd)
	}

	b.publishAck(NewAckMessage(cmd, id, err))
	return err
}

func (b *Bridge) execute(id string, cmd CommandMessage) error {
	if cmd.FEOverride == "" && len(cmd.Properties) == 0 {
		return fmt.Errorf("%w: no changes", ErrInvalidCommand)
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if cmd.FEOverride != "" {
		if err := b.tuners.SetProperty(ctx, id, tuner.PropOverride, cmd.FEOverride); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(cmd.Properties))
	for k := range cmd.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := b.tuners.SetProperty(ctx, id, k, cmd.Properties[k]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.TunerAck(Protocol, ack.UUID), payload, b.qos, false); err != nil {
		b.logger.Warn("failed to publish ack", "command_id", ack.CommandID, "error", err)
	}
}
