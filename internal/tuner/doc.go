// Package tuner manages HDHomeRun tuner devices and their frontends.
//
// A Device is one physical box found on the LAN. Each Device owns an
// ordered set of Frontends, one per tuner unit, all built for the Device's
// override signal type (DVB-T, DVB-C or ATSC).
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                               Manager                                │
//	│                                                                      │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────────────────┐  │
//	│  │     Scan     │──▶│   Registry   │◀──│ SetOverride / reconcile  │  │
//	│  │ (manager.go) │   │(registry.go) │   │      (reconcile.go)      │  │
//	│  └──────┬───────┘   └──────┬───────┘   └────────────┬─────────────┘  │
//	│         │                  │                        │                │
//	│         ▼                  ▼                        ▼                │
//	│    Discoverer        Device/Frontend         settings.Store          │
//	│  SessionOpener         (device.go,            (persist.go)           │
//	│   TunerOpener          frontend.go)                                  │
//	└──────────────────────────────────────────────────────────────────────┘
//	                │ events, delivered after the lock is released
//	                ▼
//	         Listener (API websocket hub, MQTT bridge, metrics)
//
// # Locking
//
// The Manager holds one mutex that guards the whole device graph. Every
// exported method acquires it; every unexported method named ...Locked
// requires it to already be held. Nothing outside the Manager holds a
// *Device or *Frontend: callers get DeviceInfo snapshots.
//
// # Identity
//
// A device's identity is the hex SHA-1 of its 32-bit id in little-endian
// byte order. It is the registry key and the persistence key
// ("adapters/<identity>").
//
// # Usage
//
//	mgr := tuner.NewManager(tuner.Options{
//	    Discoverer: disc,
//	    Sessions:   sessions,
//	    Tuners:     tuners,
//	    Store:      store,
//	    Interval:   time.Minute,
//	})
//	mgr.SetLogger(log)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Shutdown()
//
//	err := mgr.SetOverride(ctx, identity, "DVB-T")
package tuner
