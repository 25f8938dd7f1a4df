package hdhomerun

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Port is the UDP discovery and TCP control port.
const Port = 65001

// Device types and wildcards used in discover requests.
const (
	DeviceTypeWildcard uint32 = 0xFFFFFFFF
	DeviceTypeTuner    uint32 = 0x00000001
	DeviceIDWildcard   uint32 = 0xFFFFFFFF
)

// PacketType identifies a frame.
type PacketType uint16

// Packet types.
const (
	TypeDiscoverReq PacketType = 0x0002
	TypeDiscoverRpy PacketType = 0x0003
	TypeGetSetReq   PacketType = 0x0004
	TypeGetSetRpy   PacketType = 0x0005
)

// Tag identifies a TLV field.
type Tag uint8

// TLV tags.
const (
	TagDeviceType   Tag = 0x01
	TagDeviceID     Tag = 0x02
	TagGetSetName   Tag = 0x03
	TagGetSetValue  Tag = 0x04
	TagErrorMessage Tag = 0x05
	TagTunerCount   Tag = 0x10
)

const (
	headerLen   = 4
	crcLen      = 4
	maxTLVLen   = 0x7FFF
	maxPayload  = 0xFFFF
	shortTLVMax = 0x7F
)

// Field is one TLV entry.
type Field struct {
	Tag   Tag
	Value []byte
}

// Packet is a decoded frame. Fields keep wire order.
type Packet struct {
	Type   PacketType
	Fields []Field
}

// NewPacket returns an empty packet of type t.
func NewPacket(t PacketType) *Packet {
	return &Packet{Type: t}
}

// Add appends a raw field.
func (p *Packet) Add(tag Tag, value []byte) *Packet {
	p.Fields = append(p.Fields, Field{Tag: tag, Value: value})
	return p
}

// AddUint32 appends a big-endian uint32 field.
func (p *Packet) AddUint32(tag Tag, v uint32) *Packet {
	return p.Add(tag, binary.BigEndian.AppendUint32(nil, v))
}

// AddString appends a NUL-terminated string field.
func (p *Packet) AddString(tag Tag, s string) *Packet {
	return p.Add(tag, append([]byte(s), 0))
}

// Get returns the first field with tag.
func (p *Packet) Get(tag Tag) ([]byte, bool) {
	for _, f := range p.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return nil, false
}

// GetUint32 returns the first tag field decoded as a big-endian uint32.
func (p *Packet) GetUint32(tag Tag) (uint32, bool) {
	v, ok := p.Get(tag)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// GetString returns the first tag field with any trailing NUL removed.
func (p *Packet) GetString(tag Tag) (string, bool) {
	v, ok := p.Get(tag)
	if !ok {
		return "", false
	}
	return string(bytes.TrimRight(v, "\x00")), true
}

// MarshalBinary encodes the packet including its CRC.
func (p *Packet) MarshalBinary() ([]byte, error) {
	var payload []byte
	for _, f := range p.Fields {
		n := len(f.Value)
		if n > maxTLVLen {
			return nil, fmt.Errorf("%w: field 0x%02x is %d bytes", ErrInvalidPacket, f.Tag, n)
		}
		payload = append(payload, byte(f.Tag))
		if n <= shortTLVMax {
			payload = append(payload, byte(n))
		} else {
			payload = append(payload, byte(n&0x7F)|0x80, byte(n>>7))
		}
		payload = append(payload, f.Value...)
	}
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("%w: payload is %d bytes", ErrInvalidPacket, len(payload))
	}

	buf := make([]byte, 0, headerLen+len(payload)+crcLen)
	buf = binary.BigEndian.AppendUint16(buf, uint16(p.Type))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf, nil
}

// ParsePacket decodes one complete frame from b. Trailing bytes are an error.
func ParsePacket(b []byte) (*Packet, error) {
	if len(b) < headerLen+crcLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPacket, len(b))
	}
	n := int(binary.BigEndian.Uint16(b[2:4]))
	if len(b) != headerLen+n+crcLen {
		return nil, fmt.Errorf("%w: length %d does not match %d bytes", ErrInvalidPacket, n, len(b))
	}

	body := b[:headerLen+n]
	want := binary.LittleEndian.Uint32(b[headerLen+n:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, fmt.Errorf("%w: got %08x want %08x", ErrBadCRC, got, want)
	}

	p := &Packet{Type: PacketType(binary.BigEndian.Uint16(b[0:2]))}
	payload := body[headerLen:]
	for len(payload) > 0 {
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: truncated tag", ErrInvalidPacket)
		}
		tag := Tag(payload[0])
		l := int(payload[1])
		payload = payload[2:]
		if l&0x80 != 0 {
			if len(payload) < 1 {
				return nil, fmt.Errorf("%w: truncated length", ErrInvalidPacket)
			}
			l = (l & 0x7F) | int(payload[0])<<7
			payload = payload[1:]
		}
		if len(payload) < l {
			return nil, fmt.Errorf("%w: field 0x%02x wants %d bytes, %d left", ErrInvalidPacket, tag, l, len(payload))
		}
		value := make([]byte, l)
		copy(value, payload[:l])
		p.Fields = append(p.Fields, Field{Tag: tag, Value: value})
		payload = payload[l:]
	}
	return p, nil
}
