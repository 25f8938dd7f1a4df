package tuner

import "context"

// Discovery constants.
const (
	DeviceTypeTuner  uint32 = 0x00000001
	DeviceIDWildcard uint32 = 0xFFFFFFFF

	// MaxDevices is the per-scan cap on discovered devices.
	MaxDevices = 8
)

// DiscoveryRecord is one device reported by the discovery transport.
type DiscoveryRecord struct {
	DeviceID   uint32
	DeviceType uint32
	// IP is the IPv4 address in host order.
	IP         uint32
	TunerCount int
}

// Discoverer finds devices on the network.
type Discoverer interface {
	Discover(ctx context.Context, deviceType, deviceID uint32, maxResults int) ([]DiscoveryRecord, error)
	Close() error
}

// ControlSession queries device metadata.
type ControlSession interface {
	Model(ctx context.Context) (string, error)
	Close() error
}

// SessionOpener opens control sessions.
type SessionOpener interface {
	OpenSession(deviceID, ip uint32) (ControlSession, error)
}

// TunerSession is the resource held by a live Frontend.
type TunerSession interface {
	Close() error
}

// StatusReporter is implemented by tuner sessions that can report status.
type StatusReporter interface {
	Status(ctx context.Context) (string, error)
}

// TunerOpener initialises tuner units.
type TunerOpener interface {
	OpenTuner(deviceID, ip uint32, index int, t SignalType) (TunerSession, error)
}

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
