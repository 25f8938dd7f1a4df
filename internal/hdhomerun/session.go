package hdhomerun

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

const defaultSessionTimeout = 2 * time.Second

// SessionOptions configures a Session.
type SessionOptions struct {
	// Timeout bounds dial plus one request/reply round trip.
	Timeout time.Duration

	// Port overrides the control port. Zero means Port.
	Port int
}

// Session is a control connection to one device. The TCP connection is
// dialled on the first request and reused until Close. Requests are
// serialised.
type Session struct {
	deviceID uint32
	ip       uint32
	opts     SessionOptions

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewSession returns a Session for the device at ip without connecting.
func NewSession(deviceID, ip uint32, opts SessionOptions) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSessionTimeout
	}
	if opts.Port == 0 {
		opts.Port = Port
	}
	return &Session{deviceID: deviceID, ip: ip, opts: opts}
}

// DeviceID returns the id the session was created for.
func (s *Session) DeviceID() uint32 { return s.deviceID }

// IP returns the host-order device address.
func (s *Session) IP() uint32 { return s.ip }

// Addr returns the control endpoint as host:port.
func (s *Session) Addr() string {
	return net.JoinHostPort(FormatIPv4(s.ip), strconv.Itoa(s.opts.Port))
}

// Get reads a device variable such as "/sys/model".
func (s *Session) Get(ctx context.Context, name string) (string, error) {
	return s.roundTrip(ctx, name, nil)
}

// Set writes a device variable and returns the value the device reports back.
func (s *Session) Set(ctx context.Context, name, value string) (string, error) {
	return s.roundTrip(ctx, name, &value)
}

// Model returns the device model string, e.g. "hdhomerun4_atsc".
func (s *Session) Model(ctx context.Context) (string, error) {
	return s.Get(ctx, "/sys/model")
}

// Close drops the TCP connection. Later requests return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) roundTrip(ctx context.Context, name string, value *string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	req := NewPacket(TypeGetSetReq).AddString(TagGetSetName, name)
	if value != nil {
		req.AddString(TagGetSetValue, *value)
	}
	frame, err := req.MarshalBinary()
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(s.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := s.connLocked(ctx, deadline)
	if err != nil {
		return "", err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", s.failLocked(fmt.Errorf("setting deadline: %w", err))
	}

	if _, err := conn.Write(frame); err != nil {
		return "", s.failLocked(fmt.Errorf("sending %s: %w", name, timeoutErr(err)))
	}

	rpy, err := ReadPacket(conn)
	if err != nil {
		return "", s.failLocked(fmt.Errorf("reading reply to %s: %w", name, timeoutErr(err)))
	}
	if rpy.Type != TypeGetSetRpy {
		return "", fmt.Errorf("%w: 0x%04x", ErrUnexpectedType, rpy.Type)
	}
	if msg, ok := rpy.GetString(TagErrorMessage); ok {
		return "", fmt.Errorf("%w: %s: %s", ErrDeviceError, name, msg)
	}

	v, _ := rpy.GetString(TagGetSetValue) //nolint:errcheck // missing value reads as empty
	return v, nil
}

func (s *Session) connLocked(ctx context.Context, deadline time.Time) (net.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	d := net.Dialer{Deadline: deadline}
	conn, err := d.DialContext(ctx, "tcp4", s.Addr())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", s.Addr(), timeoutErr(err))
	}
	s.conn = conn
	return conn, nil
}

// failLocked drops a connection that is in an unknown state so the next
// request redials.
func (s *Session) failLocked(err error) error {
	if s.conn != nil {
		s.conn.Close() //nolint:errcheck // already failing
		s.conn = nil
	}
	return err
}

func timeoutErr(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// ReadPacket reads exactly one frame from r.
func ReadPacket(r io.Reader) (*Packet, error) {
	hdr := make([]byte, headerLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[2:4]))
	frame := make([]byte, headerLen+n+crcLen)
	copy(frame, hdr)
	if _, err := io.ReadFull(r, frame[headerLen:]); err != nil {
		return nil, err
	}
	return ParsePacket(frame)
}
