package tuner

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/tunerd/internal/settings"
)

type fakeDiscoverer struct {
	mu      sync.Mutex
	records []DiscoveryRecord
	err     error
	calls   int
	closed  bool
}

func (f *fakeDiscoverer) Discover(_ context.Context, deviceType, deviceID uint32, maxResults int) ([]DiscoveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if deviceType != DeviceTypeTuner || deviceID != DeviceIDWildcard || maxResults != MaxDevices {
		return nil, errors.New("unexpected discover arguments")
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]DiscoveryRecord(nil), f.records...), nil
}

func (f *fakeDiscoverer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDiscoverer) set(records ...DiscoveryRecord) {
	f.mu.Lock()
	f.records = records
	f.mu.Unlock()
}

func (f *fakeDiscoverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDiscoverer) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSession struct {
	model string
	err   error
}

func (s fakeSession) Model(context.Context) (string, error) { return s.model, s.err }
func (fakeSession) Close() error                            { return nil }

type fakeSessions struct {
	models map[uint32]string
}

func (f fakeSessions) OpenSession(deviceID, _ uint32) (ControlSession, error) {
	model, ok := f.models[deviceID]
	if !ok {
		return fakeSession{err: errors.New("no model")}, nil
	}
	return fakeSession{model: model}, nil
}

type fakeTunerSession struct {
	owner  *fakeTuners
	status string
}

func (s *fakeTunerSession) Close() error {
	s.owner.mu.Lock()
	s.owner.closed++
	s.owner.mu.Unlock()
	return nil
}

func (s *fakeTunerSession) Status(context.Context) (string, error) {
	return s.status, nil
}

type fakeTuners struct {
	mu     sync.Mutex
	fail   map[int]bool
	opened int
	closed int
}

func (f *fakeTuners) OpenTuner(_, _ uint32, index int, t SignalType) (TunerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[index] {
		return nil, errors.New("tuner busy")
	}
	f.opened++
	return &fakeTunerSession{owner: f, status: "ch=none type=" + t.String()}, nil
}

func (f *fakeTuners) counts() (opened, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed
}

// countingStore wraps a MemoryStore, counts saves and can fail loads.
type countingStore struct {
	*settings.MemoryStore

	mu       sync.Mutex
	saves    int
	failLoad map[string]error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: settings.NewMemoryStore(), failLoad: map[string]error{}}
}

func (s *countingStore) Load(ctx context.Context, key string) (settings.Record, error) {
	s.mu.Lock()
	err := s.failLoad[key]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Load(ctx, key)
}

func (s *countingStore) Save(ctx context.Context, key string, rec settings.Record) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, key, rec)
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type recordingListener struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordingListener) HandleEvent(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *recordingListener) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	mgr    *Manager
	disc   *fakeDiscoverer
	tuners *fakeTuners
	store  *countingStore
	events *recordingListener
}

func newHarness(records ...DiscoveryRecord) *harness {
	h := &harness{
		disc:   &fakeDiscoverer{records: records},
		tuners: &fakeTuners{fail: map[int]bool{}},
		store:  newCountingStore(),
		events: &recordingListener{},
	}
	h.mgr = h.newManager()
	return h
}

// newManager builds another manager sharing the harness collaborators.
func (h *harness) newManager() *Manager {
	m := NewManager(Options{
		Discoverer: h.disc,
		Sessions: fakeSessions{models: map[uint32]string{
			0x1A2B3C4D: "hdhomerun3_dvbc",
			0x10A0A0A0: "hdhomerun4_atsc",
		}},
		Tuners: h.tuners,
		Store:  h.store,
	})
	m.AddListener(h.events)
	return m
}

const (
	testDeviceID = uint32(0x1A2B3C4D)
	testIP       = uint32(0xC0A8010A) // 192.168.1.10
)

func tunerRecord(id, ip uint32, tuners int) DiscoveryRecord {
	return DiscoveryRecord{DeviceID: id, DeviceType: DeviceTypeTuner, IP: ip, TunerCount: tuners}
}
