package main

import (
	"time"

	"github.com/nerrad567/tunerd/internal/infrastructure/influxdb"
	"github.com/nerrad567/tunerd/internal/tuner"
)

// metricsWriter is the subset of *influxdb.Client the recorder uses.
type metricsWriter interface {
	WriteScan(s influxdb.ScanSample, at time.Time)
	WriteDeviceEvent(s influxdb.DeviceSample, at time.Time)
}

// metricsRecorder writes scan results and device lifecycle events to
// InfluxDB. Writes are batched by the client and never block the manager.
type metricsRecorder struct {
	w metricsWriter
}

func newMetricsRecorder(w metricsWriter) *metricsRecorder {
	return &metricsRecorder{w: w}
}

// HandleEvent implements tuner.Listener.
func (r *metricsRecorder) HandleEvent(e tuner.Event) {
	switch e.Type {
	case tuner.EventScanCompleted:
		if e.Scan == nil || e.Scan.Skipped {
			return
		}
		r.w.WriteScan(influxdb.ScanSample{
			Found:    e.Scan.Found,
			Created:  e.Scan.Created,
			Updated:  e.Scan.Updated,
			Failed:   e.Scan.Failed,
			Duration: e.Scan.Duration,
		}, e.Time)
	case tuner.EventDeviceAdded, tuner.EventDeviceUpdated, tuner.EventDeviceRemoved:
		sample := influxdb.DeviceSample{Identity: e.Identity, Event: string(e.Type)}
		if e.Device != nil {
			sample.DeviceID = e.Device.DeviceIDHex()
			sample.SignalType = e.Device.Override.String()
			sample.Frontends = len(e.Device.Frontends)
		}
		if e.Type == tuner.EventDeviceRemoved {
			sample.Frontends = 0
		}
		r.w.WriteDeviceEvent(sample, e.Time)
	}
}
