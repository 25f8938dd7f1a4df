package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/tunerd/internal/hdhomerun"
	"github.com/nerrad567/tunerd/internal/infrastructure/influxdb"
	"github.com/nerrad567/tunerd/internal/tuner"
)

func TestToRecords(t *testing.T) {
	got := toRecords([]hdhomerun.DiscoveredDevice{
		{DeviceID: 0x1A2B3C4D, DeviceType: hdhomerun.DeviceTypeTuner, IP: 0xC0A8010A, TunerCount: 2},
		{DeviceID: 0x10A0A0A0, DeviceType: 0x00000005, IP: 0xC0A8010B},
	})
	want := []tuner.DiscoveryRecord{
		{DeviceID: 0x1A2B3C4D, DeviceType: tuner.DeviceTypeTuner, IP: 0xC0A8010A, TunerCount: 2},
		{DeviceID: 0x10A0A0A0, DeviceType: 0x00000005, IP: 0xC0A8010B},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDiscoverer_Loopback(t *testing.T) {
	d := discoverer{client: hdhomerun.NewClient(hdhomerun.ClientOptions{
		BroadcastAddress: startDiscoveryResponder(t, 0x1A2B3C4D),
		Timeout:          200 * time.Millisecond,
	})}

	records, err := d.Discover(context.Background(), tuner.DeviceTypeTuner, tuner.DeviceIDWildcard, tuner.MaxDevices)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(records) != 1 || records[0].DeviceID != 0x1A2B3C4D || records[0].TunerCount != 2 {
		t.Errorf("records = %+v", records)
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := d.Discover(context.Background(), tuner.DeviceTypeTuner, tuner.DeviceIDWildcard, 1); !errors.Is(err, hdhomerun.ErrClosed) {
		t.Errorf("Discover() after Close error = %v, want ErrClosed", err)
	}
}

func TestTunerOpener(t *testing.T) {
	o := tunerOpener{}

	session, err := o.OpenTuner(0x1A2B3C4D, 0x7F000001, 1, tuner.SignalTerrestrial)
	if err != nil {
		t.Fatalf("OpenTuner() error = %v", err)
	}
	if _, ok := session.(tuner.StatusReporter); !ok {
		t.Error("tuner session should report status")
	}
	if err := session.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := o.OpenTuner(0x1A2B3C4D, 0x7F000001, hdhomerun.MaxTuners, tuner.SignalCable); !errors.Is(err, hdhomerun.ErrInvalidTuner) {
		t.Errorf("OpenTuner(out of range) error = %v, want ErrInvalidTuner", err)
	}
}

func TestSessionOpener(t *testing.T) {
	s, err := sessionOpener{}.OpenSession(0x1A2B3C4D, 0x7F000001)
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type recordedWrites struct {
	scans   []influxdb.ScanSample
	devices []influxdb.DeviceSample
}

func (r *recordedWrites) WriteScan(s influxdb.ScanSample, _ time.Time) {
	r.scans = append(r.scans, s)
}

func (r *recordedWrites) WriteDeviceEvent(s influxdb.DeviceSample, _ time.Time) {
	r.devices = append(r.devices, s)
}

func TestMetricsRecorder(t *testing.T) {
	w := &recordedWrites{}
	rec := newMetricsRecorder(w)

	info := tuner.DeviceInfo{
		Identity:  tuner.DeriveIdentity(0x1A2B3C4D),
		DeviceID:  0x1A2B3C4D,
		Override:  tuner.SignalTerrestrial,
		Frontends: make([]tuner.FrontendInfo, 2),
	}
	now := time.Now()
	rec.HandleEvent(tuner.Event{Type: tuner.EventDeviceAdded, Identity: info.Identity, Device: &info, Time: now})
	rec.HandleEvent(tuner.Event{Type: tuner.EventDeviceRemoved, Identity: info.Identity, Device: &info, Time: now})
	rec.HandleEvent(tuner.Event{Type: tuner.EventScanCompleted, Scan: &tuner.ScanResult{Found: 1, Created: 1, Duration: time.Second}, Time: now})
	rec.HandleEvent(tuner.Event{Type: tuner.EventScanCompleted, Scan: &tuner.ScanResult{Skipped: true}, Time: now})

	if len(w.devices) != 2 {
		t.Fatalf("device writes = %d, want 2", len(w.devices))
	}
	added := w.devices[0]
	if added.Event != string(tuner.EventDeviceAdded) || added.DeviceID != "1A2B3C4D" ||
		added.SignalType != "DVB-T" || added.Frontends != 2 {
		t.Errorf("added sample = %+v", added)
	}
	if removed := w.devices[1]; removed.Frontends != 0 || removed.Event != string(tuner.EventDeviceRemoved) {
		t.Errorf("removed sample = %+v", removed)
	}

	if len(w.scans) != 1 {
		t.Fatalf("scan writes = %d, want 1 (skipped scans are not recorded)", len(w.scans))
	}
	if s := w.scans[0]; s.Found != 1 || s.Created != 1 || s.Duration != time.Second {
		t.Errorf("scan sample = %+v", s)
	}
}
