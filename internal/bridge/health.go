package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/tunerd/internal/infrastructure/mqtt"
	"github.com/nerrad567/tunerd/internal/tuner"
)

const defaultHealthInterval = 30 * time.Second

// HealthReporter publishes the bridge health at a fixed interval.
type HealthReporter struct {
	version   string
	startTime time.Time
	interval  time.Duration
	publisher Publisher
	running   func() bool

	mu          sync.RWMutex
	deviceCount int
	lastScan    *tuner.ScanResult

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	Publisher Publisher

	// Running reports whether the tuner manager is running. Nil counts as
	// running.
	Running func() bool
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		running:   cfg.Running,
		done:      make(chan struct{}),
		logger:    noopLogger{},
	}
}

// Start begins periodic health reporting until ctx is cancelled or Stop is
// called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status. Safe to call
// more than once.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// SetDeviceCount updates the managed device count.
func (h *HealthReporter) SetDeviceCount(count int) {
	h.mu.Lock()
	h.deviceCount = count
	h.mu.Unlock()
}

// SetLastScan records the most recent scan result.
func (h *HealthReporter) SetLastScan(res tuner.ScanResult) {
	h.mu.Lock()
	h.lastScan = &res
	h.mu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.running != nil && !h.running() {
		return HealthDegraded, "tuner manager not running"
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.lastScan != nil && h.lastScan.Failed > 0 {
		return HealthDegraded, "devices failed to initialise"
	}
	return HealthHealthy, ""
}

// message builds the health payload for status.
func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := HealthMessage{
		Bridge:         Protocol,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        h.version,
		UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
		DevicesManaged: h.deviceCount,
		Reason:         reason,
	}
	if h.lastScan != nil {
		scan := *h.lastScan
		msg.LastScan = &scan
	}
	return msg
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(h.message(status, reason))
	if err != nil {
		return err
	}
	return h.publisher.Publish(mqtt.Topics{}.BridgeHealth(Protocol), payload, 1, true)
}

// LWTPayload returns the will message to register when connecting.
func LWTPayload() []byte {
	data, _ := json.Marshal(NewLWTMessage()) //nolint:errcheck // fixed struct always marshals
	return data
}

// LWTTopic returns the topic for the Last Will and Testament.
func LWTTopic() string {
	return mqtt.Topics{}.BridgeHealth(Protocol)
}
