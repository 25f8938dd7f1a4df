package tuner

import (
	"context"
	"fmt"
)

// Property ids exposed on a device.
const (
	PropNetworkType = "networkType"
	PropIPAddress   = "ip_address"
	PropUUID        = "uuid"
	PropFriendly    = "friendly"
	PropModel       = "deviceModel"
	PropOverride    = "fe_override"
)

// Property is one named, typed attribute shown to configuration UIs.
type Property struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	ReadOnly bool     `json:"rdonly,omitempty"`
	Advanced bool     `json:"advanced,omitempty"`
	NoSave   bool     `json:"nosave,omitempty"`
	Enum     []string `json:"enum,omitempty"`
}

// Properties lists the device properties in display order.
func (i DeviceInfo) Properties() []Property {
	override := i.Override.String()
	return []Property{
		{ID: PropNetworkType, Name: "Network", Value: override, ReadOnly: true, NoSave: true},
		{ID: PropIPAddress, Name: "IP Address", Value: i.IPAddress, ReadOnly: true, NoSave: true},
		{ID: PropUUID, Name: "UUID", Value: i.Identity, ReadOnly: true},
		{ID: PropFriendly, Name: "Friendly Name", Value: i.FriendlyName, ReadOnly: true, NoSave: true},
		{ID: PropModel, Name: "Device Model", Value: i.Model, ReadOnly: true, NoSave: true},
		{ID: PropOverride, Name: "Network Type", Value: override, Advanced: true, Enum: SignalLabels()},
	}
}

// SetProperty writes property id of the device with identity. Only
// fe_override is writable.
func (m *Manager) SetProperty(ctx context.Context, identity, id, value string) error {
	switch id {
	case PropOverride:
		return m.SetOverride(ctx, identity, value)
	case PropNetworkType, PropIPAddress, PropUUID, PropFriendly, PropModel:
		return fmt.Errorf("%w: %s", ErrReadOnlyProperty, id)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProperty, id)
	}
}
