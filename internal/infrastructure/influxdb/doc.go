// Package influxdb provides InfluxDB connectivity for tunerd.
//
// It wraps the official influxdb-client-go v2 library and records tuner
// lifecycle metrics: one tuner_scan point per discovery pass and one
// tuner_device point per device added, updated or removed.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteScan(influxdb.ScanSample{Found: 1, Created: 1}, time.Now())
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
