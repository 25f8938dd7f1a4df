// Package api implements the HTTP REST API and WebSocket server for tunerd.
//
// This package provides:
//   - REST endpoints to list tuners, inspect their properties and frontends,
//     change the network type override and remove devices
//   - An on-demand discovery scan, coalesced across concurrent callers
//   - A WebSocket hub that relays tuner lifecycle events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server sits between configuration UIs and the tuner manager. Reads
// are snapshots taken from the manager; writes go through the same manager
// operations the MQTT bridge uses. The Hub is registered as a manager
// listener and fans events out to subscribed WebSocket clients on the
// channels tuner.updated, tuner.removed and discovery.scan.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Graceful Degradation
//
// The server runs whether or not MQTT or InfluxDB are configured. It only
// depends on the tuner manager.
package api
