package tuner

import "time"

// EventType names a Manager event.
type EventType string

// Event types.
const (
	EventDeviceAdded   EventType = "device_added"
	EventDeviceUpdated EventType = "device_updated"
	EventDeviceRemoved EventType = "device_removed"
	EventScanCompleted EventType = "scan_completed"
)

// Event describes a change to the device graph. Device is set for device
// events (for removals it is the last state before removal); Scan is set
// for EventScanCompleted.
type Event struct {
	Type     EventType
	Identity string
	Device   *DeviceInfo
	Scan     *ScanResult
	Time     time.Time
}

// Listener receives events. HandleEvent is called without the Manager lock
// held, from the goroutine that made the change, in order.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// HandleEvent calls f(e).
func (f ListenerFunc) HandleEvent(e Event) { f(e) }

// ScanResult summarises one discovery pass.
type ScanResult struct {
	// Skipped is true when the manager was not running.
	Skipped  bool          `json:"skipped,omitempty"`
	Found    int           `json:"found"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}
