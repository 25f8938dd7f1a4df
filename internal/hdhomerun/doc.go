// Package hdhomerun speaks the HDHomeRun LAN protocol.
//
// Three pieces are provided:
//   - Client broadcasts discover requests over UDP and collects replies
//   - Session issues get/set requests to one device over TCP
//   - Tuner is a handle on one tuner unit, backed by a lazily dialled Session
//
// Every packet is framed as
//
//	type (uint16 BE) | length (uint16 BE) | TLV payload | CRC32 (LE)
//
// where the CRC is IEEE over header and payload. TLV lengths use one byte up
// to 127 and two bytes beyond that (low seven bits first, high bit set).
//
// Port 65001 is used for both discovery (UDP) and control (TCP).
package hdhomerun
