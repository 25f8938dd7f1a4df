package hdhomerun

import (
	"context"
	"fmt"
)

// MaxTuners is the highest tuner count any device reports.
const MaxTuners = 16

// Tuner is a handle on one tuner unit of a device.
type Tuner struct {
	index   int
	session *Session
}

// OpenTuner returns a handle on tuner index of the device at ip. No
// connection is made until a request is issued.
func OpenTuner(deviceID, ip uint32, index int, opts SessionOptions) (*Tuner, error) {
	if index < 0 || index >= MaxTuners {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTuner, index)
	}
	return &Tuner{index: index, session: NewSession(deviceID, ip, opts)}, nil
}

// Index returns the tuner number within the device.
func (t *Tuner) Index() int { return t.index }

// DeviceID returns the owning device id.
func (t *Tuner) DeviceID() uint32 { return t.session.DeviceID() }

// IP returns the host-order device address.
func (t *Tuner) IP() uint32 { return t.session.IP() }

// Status returns the raw status line of the tuner, e.g.
// "ch=none lock=none ss=0 snq=0 seq=0 bps=0 pps=0".
func (t *Tuner) Status(ctx context.Context) (string, error) {
	return t.session.Get(ctx, fmt.Sprintf("/tuner%d/status", t.index))
}

// Close releases the control connection.
func (t *Tuner) Close() error {
	return t.session.Close()
}
