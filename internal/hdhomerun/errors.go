package hdhomerun

import "errors"

var (
	// ErrInvalidPacket is returned when a packet is truncated or malformed.
	ErrInvalidPacket = errors.New("hdhomerun: invalid packet")

	// ErrBadCRC is returned when a packet checksum does not match.
	ErrBadCRC = errors.New("hdhomerun: bad crc")

	// ErrUnexpectedType is returned when a reply has the wrong packet type.
	ErrUnexpectedType = errors.New("hdhomerun: unexpected packet type")

	// ErrDeviceError wraps an error message reported by the device itself.
	ErrDeviceError = errors.New("hdhomerun: device error")

	// ErrTimeout is returned when a control request gets no reply in time.
	ErrTimeout = errors.New("hdhomerun: timeout")

	// ErrClosed is returned when a closed Client or Session is used.
	ErrClosed = errors.New("hdhomerun: closed")

	// ErrInvalidTuner is returned for a tuner index outside 0..MaxTuners-1.
	ErrInvalidTuner = errors.New("hdhomerun: invalid tuner index")
)
