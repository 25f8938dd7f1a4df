package tuner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/tunerd/internal/settings"
)

// Options wires a Manager to its collaborators.
type Options struct {
	Discoverer Discoverer
	Sessions   SessionOpener
	Tuners     TunerOpener
	Store      settings.Store

	// Interval between periodic scans after Start. Zero disables the loop.
	Interval time.Duration

	// MaxDevices caps devices per scan. Default MaxDevices.
	MaxDevices int
}

// Manager owns the device registry and serialises every mutation of it.
type Manager struct {
	discoverer Discoverer
	sessions   SessionOpener
	tuners     TunerOpener
	store      settings.Store
	interval   time.Duration
	maxDevices int
	now        func() time.Time

	// mu is the device-graph lock. pending is only touched under it.
	mu       sync.Mutex
	registry *Registry
	pending  []Event

	running atomic.Bool
	stopped atomic.Bool

	listenersMu sync.RWMutex
	listeners   []Listener

	// loopCancel is guarded by mu.
	loopCancel   context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once

	logger Logger
}

// NewManager returns a stopped Manager. Discoverer and Tuners are required;
// a nil Store keeps records in memory and a nil Sessions skips model queries.
func NewManager(opts Options) *Manager {
	maxDevices := opts.MaxDevices
	if maxDevices <= 0 {
		maxDevices = MaxDevices
	}
	store := opts.Store
	if store == nil {
		store = settings.NewMemoryStore()
	}
	return &Manager{
		discoverer: opts.Discoverer,
		sessions:   opts.Sessions,
		tuners:     opts.Tuners,
		store:      store,
		interval:   opts.Interval,
		maxDevices: maxDevices,
		now:        time.Now,
		registry:   NewRegistry(),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger. Call before Start.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// AddListener registers l for all future events.
func (m *Manager) AddListener(l Listener) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, l)
	m.listenersMu.Unlock()
}

// Running reports whether the manager has started and not shut down.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Start marks the manager running, runs one scan, and starts the periodic
// scan loop when an interval is configured. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	if m.stopped.Load() {
		return ErrNotRunning
	}
	if !m.running.CompareAndSwap(false, true) {
		return nil
	}

	m.Scan(ctx)

	if m.interval <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped.Load() {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.loopCancel = cancel
	m.wg.Add(1)
	go m.scanLoop(loopCtx)
	return nil
}

func (m *Manager) scanLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

// Scan runs one discovery pass. It never fails: transport errors count as
// an empty pass and per-device failures are counted in the result.
func (m *Manager) Scan(ctx context.Context) ScanResult {
	start := m.now()

	m.mu.Lock()
	defer m.unlockAndDispatch()

	if !m.running.Load() {
		return ScanResult{Skipped: true}
	}

	res := m.scanLocked(ctx)
	res.Duration = m.now().Sub(start)

	snapshot := res
	m.queueLocked(Event{Type: EventScanCompleted, Scan: &snapshot})

	m.logger.Debug("discovery scan finished",
		"found", res.Found, "created", res.Created, "updated", res.Updated,
		"failed", res.Failed, "duration", res.Duration)
	return res
}

func (m *Manager) scanLocked(ctx context.Context) ScanResult {
	var res ScanResult

	records, err := m.discoverer.Discover(ctx, DeviceTypeTuner, DeviceIDWildcard, m.maxDevices)
	if err != nil {
		m.logger.Warn("discovery failed", "error", err)
		return res
	}

	for _, rec := range records {
		if rec.DeviceType != DeviceTypeTuner {
			continue
		}
		res.Found++

		if dev := m.registry.FindByDeviceID(rec.DeviceID); dev != nil {
			if m.refreshDeviceLocked(dev, rec) {
				res.Updated++
			}
			continue
		}

		m.logger.Info("found HDHomeRun device",
			"device_id", fmt.Sprintf("%08X", rec.DeviceID), "tuners", rec.TunerCount)
		if err := m.createDeviceLocked(ctx, rec); err != nil {
			res.Failed++
			m.logger.Error("creating device failed",
				"device_id", fmt.Sprintf("%08X", rec.DeviceID), "error", err)
			continue
		}
		res.Created++
	}
	return res
}

// refreshDeviceLocked updates the address of a known device. Frontends are
// left alone. It reports whether anything changed.
func (m *Manager) refreshDeviceLocked(dev *Device, rec DiscoveryRecord) bool {
	dev.lastSeen = m.now()
	if rec.IP == dev.ip {
		return false
	}

	old := dev.address
	dev.setAddress(rec.IP)
	m.logger.Info("device address changed",
		"device", dev.identity, "from", old, "to", dev.address)
	m.queueDeviceLocked(EventDeviceUpdated, dev)
	return true
}

// createDeviceLocked builds, registers and populates a device for rec.
func (m *Manager) createDeviceLocked(ctx context.Context, rec DiscoveryRecord) error {
	identity := DeriveIdentity(rec.DeviceID)
	model := m.queryModel(ctx, rec)

	key := deviceKey(identity)
	conf, err := m.store.Load(ctx, key)
	haveConf := err == nil
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		return fmt.Errorf("loading %s: %w", key, err)
	}

	override := DefaultSignalType
	if haveConf {
		if label := conf.GetString("fe_override"); label != "" {
			t, err := ParseSignalType(label)
			if err != nil {
				m.logger.Warn("ignoring saved override type", "device", identity, "value", label)
			} else {
				override = t
			}
		}
	} else if strings.Contains(model, "_atsc") {
		override = SignalATSC
	}
	m.logger.Info("using network type", "device", identity, "type", override.String())

	dev := newDevice(identity, rec, model, override, m.now())
	if err := m.registry.Register(dev); err != nil {
		return fmt.Errorf("registering %s: %w", identity, err)
	}

	dev.setAddress(rec.IP)
	dev.friendlyName = friendlyName(rec.DeviceID)

	feConf := conf.GetMap("frontends")
	for i := 0; i < rec.TunerCount; i++ {
		if _, err := m.createFrontendLocked(dev, feConf, override, i); err != nil {
			m.logger.Error("unable to create frontend", "device", identity, "tuner", i, "error", err)
			continue
		}
		m.logger.Info("created frontend",
			"device_id", fmt.Sprintf("%08X", rec.DeviceID), "tuner", i)
	}

	if !haveConf || feConf == nil {
		if err := m.saveDeviceLocked(ctx, dev); err != nil {
			m.logger.Warn("saving new device failed", "device", identity, "error", err)
		}
	}

	m.queueDeviceLocked(EventDeviceAdded, dev)
	return nil
}

// queryModel asks the device for its model string. Failures yield "".
func (m *Manager) queryModel(ctx context.Context, rec DiscoveryRecord) string {
	if m.sessions == nil {
		return ""
	}
	session, err := m.sessions.OpenSession(rec.DeviceID, rec.IP)
	if err != nil {
		m.logger.Debug("opening control session failed",
			"device_id", fmt.Sprintf("%08X", rec.DeviceID), "error", err)
		return ""
	}
	defer func() {
		if err := session.Close(); err != nil {
			m.logger.Debug("closing control session failed", "error", err)
		}
	}()

	model, err := session.Model(ctx)
	if err != nil {
		m.logger.Debug("querying model failed",
			"device_id", fmt.Sprintf("%08X", rec.DeviceID), "error", err)
		return ""
	}
	return model
}

// destroyDeviceLocked deletes every frontend of dev, then unregisters it.
func (m *Manager) destroyDeviceLocked(dev *Device) {
	last := dev.Info()
	for len(dev.frontends) > 0 {
		m.deleteFrontendLocked(dev, dev.frontends[0])
	}
	m.registry.Unregister(dev)

	m.queueLocked(Event{Type: EventDeviceRemoved, Identity: dev.identity, Device: &last})
}

// RemoveDevice destroys the device with identity. With forget its saved
// record is deleted as well; otherwise the next scan recreates it from the
// saved record.
func (m *Manager) RemoveDevice(ctx context.Context, identity string, forget bool) error {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	dev := m.registry.FindByIdentity(identity)
	if dev == nil {
		return ErrDeviceNotFound
	}

	m.logger.Info("removing device", "device", identity, "forget", forget)
	m.destroyDeviceLocked(dev)

	if forget {
		if err := m.store.Delete(ctx, deviceKey(identity)); err != nil {
			return fmt.Errorf("deleting saved record: %w", err)
		}
	}
	return nil
}

// Shutdown stops the scan loop, destroys every device under a single hold
// of the lock, then closes the discovery transport. Listeners see the
// removals after the transport is closed. Safe to call more than once.
func (m *Manager) Shutdown() error {
	var closeErr error
	m.shutdownOnce.Do(func() {
		m.stopped.Store(true)
		m.running.Store(false)

		m.mu.Lock()
		if m.loopCancel != nil {
			m.loopCancel()
		}
		m.logger.Info("releasing devices", "count", m.registry.Len())
		for _, dev := range m.registry.Devices() {
			m.destroyDeviceLocked(dev)
		}
		events := m.takeEventsLocked()
		m.mu.Unlock()

		m.wg.Wait()

		if m.discoverer != nil {
			if err := m.discoverer.Close(); err != nil {
				closeErr = fmt.Errorf("closing discovery transport: %w", err)
			}
		}

		m.dispatch(events)
	})
	return closeErr
}

// Devices returns snapshots of every device in registration order.
func (m *Manager) Devices() []DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	devs := m.registry.Devices()
	out := make([]DeviceInfo, len(devs))
	for i, d := range devs {
		out[i] = d.Info()
	}
	return out
}

// Device returns a snapshot of the device with identity.
func (m *Manager) Device(identity string) (DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.registry.FindByIdentity(identity)
	if dev == nil {
		return DeviceInfo{}, ErrDeviceNotFound
	}
	return dev.Info(), nil
}

// FrontendStatus asks the tuner unit at index for its status line. The
// device lock is not held during the request.
func (m *Manager) FrontendStatus(ctx context.Context, identity string, index int) (string, error) {
	m.mu.Lock()
	dev := m.registry.FindByIdentity(identity)
	if dev == nil {
		m.mu.Unlock()
		return "", ErrDeviceNotFound
	}
	fe := dev.frontendAt(index)
	if fe == nil {
		m.mu.Unlock()
		return "", ErrFrontendNotFound
	}
	session := fe.session
	m.mu.Unlock()

	sr, ok := session.(StatusReporter)
	if !ok {
		return "", ErrStatusUnsupported
	}
	return sr.Status(ctx)
}

func (m *Manager) queueLocked(e Event) {
	if e.Time.IsZero() {
		e.Time = m.now()
	}
	m.pending = append(m.pending, e)
}

func (m *Manager) queueDeviceLocked(t EventType, dev *Device) {
	info := dev.Info()
	m.queueLocked(Event{Type: t, Identity: dev.identity, Device: &info})
}

func (m *Manager) takeEventsLocked() []Event {
	events := m.pending
	m.pending = nil
	return events
}

// unlockAndDispatch releases the lock, then delivers queued events.
func (m *Manager) unlockAndDispatch() {
	events := m.takeEventsLocked()
	m.mu.Unlock()
	m.dispatch(events)
}

func (m *Manager) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	m.listenersMu.RLock()
	listeners := append([]Listener(nil), m.listeners...)
	m.listenersMu.RUnlock()

	for _, e := range events {
		for _, l := range listeners {
			l.HandleEvent(e)
		}
	}
}
