package tuner

import (
	"fmt"
	"net/netip"
	"time"
)

// TuningDefaults are the stream policy values fixed when a device is created.
type TuningDefaults struct {
	FullMux    bool `json:"full_mux"`
	PIDsMax    int  `json:"pids_max"`
	PIDsLen    int  `json:"pids_len"`
	PIDsDelAdd bool `json:"pids_deladd"`
}

// defaultTuning is applied to every new device.
var defaultTuning = TuningDefaults{
	FullMux:    true,
	PIDsMax:    32,
	PIDsLen:    127,
	PIDsDelAdd: true,
}

// Device is one HDHomeRun box. Fields are only touched with the Manager
// lock held.
type Device struct {
	identity     string
	deviceID     uint32
	ip           uint32
	address      string
	friendlyName string
	model        string
	override     SignalType
	tunerCount   int
	tuning       TuningDefaults
	frontends    []*Frontend

	discoveredAt time.Time
	lastSeen     time.Time
}

func newDevice(identity string, rec DiscoveryRecord, model string, override SignalType, now time.Time) *Device {
	return &Device{
		identity:     identity,
		deviceID:     rec.DeviceID,
		model:        model,
		override:     override,
		tunerCount:   rec.TunerCount,
		tuning:       defaultTuning,
		discoveredAt: now,
		lastSeen:     now,
	}
}

// setAddress records the device's current IPv4 address.
func (d *Device) setAddress(ip uint32) {
	d.ip = ip
	d.address = formatIPv4(ip)
}

// frontendAt returns the frontend for tuner index, or nil.
func (d *Device) frontendAt(index int) *Frontend {
	for _, fe := range d.frontends {
		if fe.index == index {
			return fe
		}
	}
	return nil
}

// Title is the display title, "<friendly> - <ip>".
func (d *Device) Title() string {
	return d.friendlyName + " - " + d.address
}

// Info returns a snapshot safe to use after the lock is released.
func (d *Device) Info() DeviceInfo {
	info := DeviceInfo{
		Identity:     d.identity,
		DeviceID:     d.deviceID,
		Title:        d.Title(),
		IPAddress:    d.address,
		FriendlyName: d.friendlyName,
		Model:        d.model,
		Override:     d.override,
		TunerCount:   d.tunerCount,
		Tuning:       d.tuning,
		Frontends:    make([]FrontendInfo, len(d.frontends)),
		DiscoveredAt: d.discoveredAt,
		LastSeen:     d.lastSeen,
	}
	for i, fe := range d.frontends {
		info.Frontends[i] = fe.Info()
	}
	return info
}

// DeviceInfo is a point-in-time copy of a Device.
type DeviceInfo struct {
	Identity     string         `json:"uuid"`
	DeviceID     uint32         `json:"device_id"`
	Title        string         `json:"title"`
	IPAddress    string         `json:"ip_address"`
	FriendlyName string         `json:"friendly"`
	Model        string         `json:"device_model"`
	Override     SignalType     `json:"fe_override"`
	TunerCount   int            `json:"tuner_count"`
	Tuning       TuningDefaults `json:"tuning"`
	Frontends    []FrontendInfo `json:"frontends"`
	DiscoveredAt time.Time      `json:"discovered_at"`
	LastSeen     time.Time      `json:"last_seen"`
}

// DeviceIDHex returns the device id as eight uppercase hex digits.
func (i DeviceInfo) DeviceIDHex() string {
	return fmt.Sprintf("%08X", i.DeviceID)
}

func friendlyName(deviceID uint32) string {
	return fmt.Sprintf("HDHomeRun(%08X)", deviceID)
}

func formatIPv4(ip uint32) string {
	return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}).String()
}
