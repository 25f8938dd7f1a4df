package main

import (
	"context"

	"github.com/nerrad567/tunerd/internal/hdhomerun"
	"github.com/nerrad567/tunerd/internal/tuner"
)

// discoverer adapts the HDHomeRun discovery client to tuner.Discoverer.
type discoverer struct {
	client *hdhomerun.Client
}

// Discover implements tuner.Discoverer.
func (d discoverer) Discover(ctx context.Context, deviceType, deviceID uint32, maxResults int) ([]tuner.DiscoveryRecord, error) {
	found, err := d.client.Discover(ctx, deviceType, deviceID, maxResults)
	if err != nil {
		return nil, err
	}
	return toRecords(found), nil
}

// Close implements tuner.Discoverer.
func (d discoverer) Close() error {
	return d.client.Close()
}

func toRecords(found []hdhomerun.DiscoveredDevice) []tuner.DiscoveryRecord {
	records := make([]tuner.DiscoveryRecord, len(found))
	for i, f := range found {
		records[i] = tuner.DiscoveryRecord{
			DeviceID:   f.DeviceID,
			DeviceType: f.DeviceType,
			IP:         f.IP,
			TunerCount: f.TunerCount,
		}
	}
	return records
}

// sessionOpener opens control sessions for model queries.
type sessionOpener struct {
	opts hdhomerun.SessionOptions
}

// OpenSession implements tuner.SessionOpener.
func (o sessionOpener) OpenSession(deviceID, ip uint32) (tuner.ControlSession, error) {
	return hdhomerun.NewSession(deviceID, ip, o.opts), nil
}

// tunerOpener opens one tuner handle per frontend. The signal type is a
// property of the frontend only; the device is not reconfigured.
type tunerOpener struct {
	opts hdhomerun.SessionOptions
}

// OpenTuner implements tuner.TunerOpener.
func (o tunerOpener) OpenTuner(deviceID, ip uint32, index int, _ tuner.SignalType) (tuner.TunerSession, error) {
	t, err := hdhomerun.OpenTuner(deviceID, ip, index, o.opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}
