package bridge

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tunerd/internal/tuner"
)

// Protocol is the protocol segment of every bridge topic.
const Protocol = "hdhomerun"

// CommandMessage is received on tunerd/command/hdhomerun/{uuid}.
//
// The short form {"fe_override":"DVB-T"} sets the override type. Properties
// carries arbitrary property writes and is applied after FEOverride.
type CommandMessage struct {
	// ID correlates the acknowledgement. Generated when empty.
	ID string `json:"id,omitempty"`

	FEOverride string            `json:"fe_override,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

// Acknowledgement outcomes.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// Error codes carried in a failed acknowledgement.
const (
	ErrCodeInvalidCommand  = "INVALID_COMMAND"
	ErrCodeInvalidValue    = "INVALID_VALUE"
	ErrCodeNotFound        = "DEVICE_NOT_FOUND"
	ErrCodeReadOnly        = "READ_ONLY"
	ErrCodeUnknownProperty = "UNKNOWN_PROPERTY"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// AckMessage is published on tunerd/ack/hdhomerun/{uuid}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	UUID      string    `json:"uuid"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError details a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateMessage is the retained payload of tunerd/state/hdhomerun/{uuid}.
type StateMessage struct {
	UUID       string           `json:"uuid"`
	Timestamp  time.Time        `json:"timestamp"`
	Device     tuner.DeviceInfo `json:"device"`
	Properties []tuner.Property `json:"properties"`
}

// ScanMessage is published on tunerd/discovery/hdhomerun after each scan.
type ScanMessage struct {
	ScanID    string           `json:"scan_id"`
	Timestamp time.Time        `json:"timestamp"`
	Result    tuner.ScanResult `json:"result"`
}

// HealthStatus is the operational status of the bridge.
type HealthStatus string

// Health states.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the retained payload of tunerd/health/hdhomerun.
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	DevicesManaged int               `json:"devices_managed"`
	LastScan       *tuner.ScanResult `json:"last_scan,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}

// NewStateMessage builds the retained state of a device.
func NewStateMessage(info tuner.DeviceInfo) StateMessage {
	return StateMessage{
		UUID:       info.Identity,
		Timestamp:  time.Now().UTC(),
		Device:     info,
		Properties: info.Properties(),
	}
}

// NewAckMessage acknowledges cmd for device id. A nil err means accepted.
func NewAckMessage(cmd CommandMessage, id string, err error) AckMessage {
	ack := AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		UUID:      id,
		Status:    AckAccepted,
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: errorCode(err), Message: err.Error()}
	}
	return ack
}

// NewScanMessage wraps a scan result with a fresh scan id.
func NewScanMessage(res tuner.ScanResult, at time.Time) ScanMessage {
	return ScanMessage{ScanID: uuid.NewString(), Timestamp: at.UTC(), Result: res}
}

// NewLWTMessage is the health payload the broker publishes if tunerd
// disappears without a graceful stop.
func NewLWTMessage() HealthMessage {
	return HealthMessage{
		Bridge:    Protocol,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, tuner.ErrInvalidSignalType):
		return ErrCodeInvalidValue
	case errors.Is(err, tuner.ErrDeviceNotFound):
		return ErrCodeNotFound
	case errors.Is(err, tuner.ErrReadOnlyProperty):
		return ErrCodeReadOnly
	case errors.Is(err, tuner.ErrUnknownProperty):
		return ErrCodeUnknownProperty
	default:
		return ErrCodeInternal
	}
}
