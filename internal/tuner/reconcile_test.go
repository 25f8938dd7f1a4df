package tuner

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestSetOverride_RebuildsFrontends(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 3))
	identity := DeriveIdentity(testDeviceID)
	dev := h.mgr.registry.FindByIdentity(identity)

	if err := h.mgr.SetOverride(context.Background(), identity, "DVB-T"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}

	if dev.override != SignalTerrestrial {
		t.Errorf("override = %v, want DVB-T", dev.override)
	}
	if !reflect.DeepEqual(frontendIndices(dev), []int{0, 1, 2}) {
		t.Errorf("frontend indices = %v, want [0 1 2]", frontendIndices(dev))
	}
	want := []SignalType{SignalTerrestrial, SignalTerrestrial, SignalTerrestrial}
	if !reflect.DeepEqual(frontendTypes(dev), want) {
		t.Errorf("frontend types = %v, want %v", frontendTypes(dev), want)
	}
	if dev.address != "192.168.1.10" {
		t.Errorf("address = %q, want unchanged", dev.address)
	}
	// One save at creation, one after the change.
	if h.store.saveCount() != 2 {
		t.Errorf("saves = %d, want 2", h.store.saveCount())
	}
	if opened, closed := h.tuners.counts(); opened != 6 || closed != 3 {
		t.Errorf("opened/closed = %d/%d, want 6/3", opened, closed)
	}

	rec, err := h.store.Load(context.Background(), deviceKey(identity))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.GetString("fe_override") != "DVB-T" {
		t.Errorf("saved fe_override = %q", rec.GetString("fe_override"))
	}
	if got := rec.GetMap("frontends").GetMap("2").GetString("type"); got != "DVB-T" {
		t.Errorf("saved frontend 2 type = %q", got)
	}

	if got := h.events.types(); got[len(got)-1] != EventDeviceUpdated {
		t.Errorf("last event = %v, want %v", got[len(got)-1], EventDeviceUpdated)
	}
}

func TestSetOverride_NoOps(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 2))
	identity := DeriveIdentity(testDeviceID)

	for _, value := range []string{"", "DVB-C"} {
		if err := h.mgr.SetOverride(context.Background(), identity, value); err != nil {
			t.Errorf("SetOverride(%q) error = %v", value, err)
		}
	}
	if h.store.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", h.store.saveCount())
	}
	if _, closed := h.tuners.counts(); closed != 0 {
		t.Errorf("sessions closed = %d, want 0", closed)
	}
}

func TestSetOverride_Errors(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 2))
	identity := DeriveIdentity(testDeviceID)

	if err := h.mgr.SetOverride(context.Background(), identity, "DVB-S"); !errors.Is(err, ErrInvalidSignalType) {
		t.Errorf("invalid label error = %v, want ErrInvalidSignalType", err)
	}
	if err := h.mgr.SetOverride(context.Background(), "deadbeef", "DVB-T"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("unknown device error = %v, want ErrDeviceNotFound", err)
	}
	// A bad label is reported before the device lookup.
	if err := h.mgr.SetOverride(context.Background(), "deadbeef", "DVB-S"); !errors.Is(err, ErrInvalidSignalType) {
		t.Errorf("bad label on unknown device error = %v, want ErrInvalidSignalType", err)
	}

	dev := h.mgr.registry.FindByIdentity(identity)
	if dev.override != SignalCable {
		t.Errorf("override = %v, want DVB-C", dev.override)
	}
}

func TestSetOverride_MixedFrontends(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 3))
	identity := DeriveIdentity(testDeviceID)

	// Build [C0, T1, C2] by hand.
	h.mgr.mu.Lock()
	dev := h.mgr.registry.FindByIdentity(identity)
	for len(dev.frontends) > 0 {
		h.mgr.deleteFrontendLocked(dev, dev.frontends[0])
	}
	for i, st := range []SignalType{SignalCable, SignalTerrestrial, SignalCable} {
		if _, err := h.mgr.createFrontendLocked(dev, nil, st, i); err != nil {
			t.Fatalf("createFrontendLocked(%d) error = %v", i, err)
		}
	}
	h.mgr.mu.Unlock()

	if err := h.mgr.SetOverride(context.Background(), identity, "DVB-T"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}

	// Only the head is replaced; the pass stops at the first DVB-T frontend.
	if !reflect.DeepEqual(frontendIndices(dev), []int{1, 2, 0}) {
		t.Errorf("frontend indices = %v, want [1 2 0]", frontendIndices(dev))
	}
	want := []SignalType{SignalTerrestrial, SignalCable, SignalTerrestrial}
	if !reflect.DeepEqual(frontendTypes(dev), want) {
		t.Errorf("frontend types = %v, want %v", frontendTypes(dev), want)
	}
}

func TestSetOverride_FrontendFailure(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 3))
	identity := DeriveIdentity(testDeviceID)
	dev := h.mgr.registry.FindByIdentity(identity)

	h.tuners.mu.Lock()
	h.tuners.fail[1] = true
	h.tuners.mu.Unlock()

	if err := h.mgr.SetOverride(context.Background(), identity, "ATSC"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}
	if !reflect.DeepEqual(frontendIndices(dev), []int{0, 2}) {
		t.Errorf("frontend indices = %v, want [0 2]", frontendIndices(dev))
	}
	rec, err := h.store.Load(context.Background(), deviceKey(identity))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(rec.GetMap("frontends")); got != 2 {
		t.Errorf("saved frontends = %d, want 2", got)
	}
}

func TestSetOverride_KeepsSavedNames(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 2))
	identity := DeriveIdentity(testDeviceID)
	ctx := context.Background()

	h.mgr.mu.Lock()
	dev := h.mgr.registry.FindByIdentity(identity)
	dev.frontendAt(0).name = "Living room"
	dev.frontendAt(1).enabled = false
	h.mgr.mu.Unlock()
	if err := h.mgr.SaveDevice(ctx, identity); err != nil {
		t.Fatalf("SaveDevice() error = %v", err)
	}

	if err := h.mgr.SetOverride(ctx, identity, "DVB-T"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}

	fe0, fe1 := dev.frontendAt(0), dev.frontendAt(1)
	if fe0.name != "Living room" || !fe0.enabled {
		t.Errorf("frontend 0 = %+v", fe0.Info())
	}
	if fe1.enabled {
		t.Error("frontend 1 should stay disabled")
	}
	if fe0.signalType != SignalTerrestrial {
		t.Errorf("frontend 0 type = %v", fe0.signalType)
	}
	if fe0.uuid != FrontendIdentity(identity, 0) {
		t.Errorf("frontend 0 uuid = %s", fe0.uuid)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 2))
	identity := DeriveIdentity(testDeviceID)
	if err := h.mgr.SetOverride(context.Background(), identity, "ATSC"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}
	if err := h.mgr.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	h.disc = &fakeDiscoverer{records: []DiscoveryRecord{tunerRecord(testDeviceID, testIP, 2)}}
	second := h.newManager()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer second.Shutdown() //nolint:errcheck // test cleanup

	info, err := second.Device(identity)
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if info.Override != SignalATSC {
		t.Errorf("override = %v, want ATSC", info.Override)
	}
	for _, fe := range info.Frontends {
		if fe.SignalType != SignalATSC {
			t.Errorf("frontend %d type = %v, want ATSC", fe.Index, fe.SignalType)
		}
	}
}

func TestSetProperty(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 1))
	identity := DeriveIdentity(testDeviceID)
	ctx := context.Background()

	if err := h.mgr.SetProperty(ctx, identity, PropOverride, "DVB-T"); err != nil {
		t.Fatalf("SetProperty(fe_override) error = %v", err)
	}
	info, _ := h.mgr.Device(identity) //nolint:errcheck // checked above
	if info.Override != SignalTerrestrial {
		t.Errorf("override = %v, want DVB-T", info.Override)
	}

	tests := []struct {
		id      string
		wantErr error
	}{
		{PropIPAddress, ErrReadOnlyProperty},
		{PropUUID, ErrReadOnlyProperty},
		{PropNetworkType, ErrReadOnlyProperty},
		{"tuning_mode", ErrUnknownProperty},
	}
	for _, tt := range tests {
		if err := h.mgr.SetProperty(ctx, identity, tt.id, "x"); !errors.Is(err, tt.wantErr) {
			t.Errorf("SetProperty(%s) error = %v, want %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestProperties_Order(t *testing.T) {
	h := startHarness(t, tunerRecord(testDeviceID, testIP, 1))
	info, err := h.mgr.Device(DeriveIdentity(testDeviceID))
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}

	props := info.Properties()
	var ids []string
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	want := []string{PropNetworkType, PropIPAddress, PropUUID, PropFriendly, PropModel, PropOverride}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("property ids = %v, want %v", ids, want)
	}

	override := props[len(props)-1]
	if override.ReadOnly || !override.Advanced || override.Value != "DVB-C" {
		t.Errorf("fe_override property = %+v", override)
	}
	if !reflect.DeepEqual(override.Enum, []string{"DVB-T", "DVB-C", "ATSC"}) {
		t.Errorf("fe_override enum = %v", override.Enum)
	}
	if props[0].Value != "DVB-C" || !props[0].ReadOnly {
		t.Errorf("networkType property = %+v", props[0])
	}
}
