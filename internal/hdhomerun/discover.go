package hdhomerun

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// DefaultBroadcastAddress is the limited broadcast address on the protocol port.
const DefaultBroadcastAddress = "255.255.255.255:65001"

const (
	defaultDiscoverTimeout = 500 * time.Millisecond
	maxDatagram            = 2048
)

// DiscoveredDevice is one reply to a discover request.
type DiscoveredDevice struct {
	DeviceID   uint32
	DeviceType uint32
	// IP is the IPv4 source address of the reply in host order.
	IP         uint32
	TunerCount int
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// BroadcastAddress is where requests are sent. Default DefaultBroadcastAddress.
	BroadcastAddress string

	// Timeout bounds one Discover call when ctx has no earlier deadline.
	Timeout time.Duration
}

// Client sends discover requests. The UDP socket is opened on first use and
// kept until Close. Discover calls are serialised.
type Client struct {
	opts ClientOptions

	mu     sync.Mutex
	conn   net.PacketConn
	closed bool
}

// NewClient returns a Client with defaults applied to opts.
func NewClient(opts ClientOptions) *Client {
	if opts.BroadcastAddress == "" {
		opts.BroadcastAddress = DefaultBroadcastAddress
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDiscoverTimeout
	}
	return &Client{opts: opts}
}

// Discover broadcasts a request for deviceType/deviceID and collects up to
// maxResults distinct replies until the timeout. Replies that fail to parse, carry
// another type or do not match deviceID are dropped. Replies are returned in
// arrival order.
func (c *Client) Discover(ctx context.Context, deviceType, deviceID uint32, maxResults int) ([]DiscoveredDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if maxResults <= 0 {
		return nil, nil
	}

	conn, err := c.connLocked()
	if err != nil {
		return nil, err
	}

	dst, err := net.ResolveUDPAddr("udp4", c.opts.BroadcastAddress)
	if err != nil {
		return nil, fmt.Errorf("resolving broadcast address: %w", err)
	}

	req, err := NewPacket(TypeDiscoverReq).
		AddUint32(TagDeviceType, deviceType).
		AddUint32(TagDeviceID, deviceID).
		MarshalBinary()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := conn.WriteTo(req, dst); err != nil {
		return nil, fmt.Errorf("sending discover request: %w", err)
	}

	var found []DiscoveredDevice
	seen := make(map[uint32]struct{})
	buf := make([]byte, maxDatagram)
	for len(found) < maxResults {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return found, fmt.Errorf("reading discover reply: %w", err)
		}

		dev, ok := parseDiscoverReply(buf[:n], from)
		if !ok {
			continue
		}
		if deviceType != DeviceTypeWildcard && dev.DeviceType != deviceType {
			continue
		}
		if deviceID != DeviceIDWildcard && dev.DeviceID != deviceID {
			continue
		}
		if _, dup := seen[dev.DeviceID]; dup {
			continue
		}
		seen[dev.DeviceID] = struct{}{}
		found = append(found, dev)
	}
	return found, nil
}

// Close releases the UDP socket. Later Discover calls return ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connLocked() (net.PacketConn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	// Go enables SO_BROADCAST on UDP sockets.
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("opening discovery socket: %w", err)
	}
	c.conn = conn
	return conn, nil
}

func parseDiscoverReply(b []byte, from net.Addr) (DiscoveredDevice, bool) {
	p, err := ParsePacket(b)
	if err != nil || p.Type != TypeDiscoverRpy {
		return DiscoveredDevice{}, false
	}

	id, ok := p.GetUint32(TagDeviceID)
	if !ok {
		return DiscoveredDevice{}, false
	}
	devType, _ := p.GetUint32(TagDeviceType) //nolint:errcheck // absent means zero

	dev := DiscoveredDevice{DeviceID: id, DeviceType: devType}
	if v, ok := p.Get(TagTunerCount); ok && len(v) == 1 {
		dev.TunerCount = int(v[0])
	}
	if udp, ok := from.(*net.UDPAddr); ok {
		if ip4 := udp.IP.To4(); ip4 != nil {
			dev.IP = binary.BigEndian.Uint32(ip4)
		}
	}
	return dev, true
}

// FormatIPv4 renders a host-order IPv4 address as a dotted quad.
func FormatIPv4(ip uint32) string {
	return net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip)).String()
}
