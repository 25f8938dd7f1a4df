// Package bridge publishes tuner lifecycle over MQTT.
//
// The bridge listens to tuner.Manager events and mirrors the device graph
// onto retained topics. It also accepts override commands from MQTT so that
// home-automation systems can switch a device's delivery system.
//
//	┌─────────────────┐  events   ┌─────────────────┐   MQTT
//	│  tuner.Manager  │──────────►│     Bridge      │◄────────► Broker
//	│                 │◄──────────│   (this pkg)    │
//	└─────────────────┘ SetProperty└─────────────────┘
//
// # Topics
//
//   - tunerd/state/hdhomerun/{uuid}    retained device state; empty on removal
//   - tunerd/command/hdhomerun/{uuid}  {"fe_override":"DVB-T"}
//   - tunerd/ack/hdhomerun/{uuid}      command acknowledgement
//   - tunerd/discovery/hdhomerun       scan summaries
//   - tunerd/health/hdhomerun          retained health, every health interval
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. HandleEvent runs on the
// goroutine that changed the device graph, after the manager lock is
// released.
package bridge
