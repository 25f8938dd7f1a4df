package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementScan   = "tuner_scan"
	MeasurementDevice = "tuner_device"
)

// ScanSample is one discovery pass.
type ScanSample struct {
	Found    int
	Created  int
	Updated  int
	Failed   int
	Duration time.Duration
}

// DeviceSample is one device lifecycle event.
type DeviceSample struct {
	Identity   string
	DeviceID   string
	Event      string
	SignalType string
	Frontends  int
}

// WriteScan records a discovery pass. Non-blocking.
func (c *Client) WriteScan(s ScanSample, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(scanPoint(s, at))
}

// WriteDeviceEvent records a device lifecycle event. Non-blocking.
func (c *Client) WriteDeviceEvent(s DeviceSample, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(devicePoint(s, at))
}

// WritePoint writes a custom point stamped now.
//
//	client.WritePoint("tunerd_runtime",
//	    map[string]string{"host": "media-01"},
//	    map[string]interface{}{"devices": 2})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func scanPoint(s ScanSample, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementScan,
		nil,
		map[string]interface{}{
			"found":       s.Found,
			"created":     s.Created,
			"updated":     s.Updated,
			"failed":      s.Failed,
			"duration_ms": float64(s.Duration) / float64(time.Millisecond),
		},
		at,
	)
}

// devicePoint tags by device id and event. The identity is a field so the
// series count stays bounded by devices, not uuids.
func devicePoint(s DeviceSample, at time.Time) *write.Point {
	tags := map[string]string{
		"device_id": s.DeviceID,
		"event":     s.Event,
	}
	if s.SignalType != "" {
		tags["signal_type"] = s.SignalType
	}
	return write.NewPoint(
		MeasurementDevice,
		tags,
		map[string]interface{}{
			"uuid":      s.Identity,
			"frontends": s.Frontends,
		},
		at,
	)
}
