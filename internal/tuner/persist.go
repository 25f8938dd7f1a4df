package tuner

import (
	"context"
	"strconv"

	"github.com/nerrad567/tunerd/internal/settings"
)

// record serialises dev as stored under adapters/<identity>.
func (d *Device) record() settings.Record {
	frontends := settings.Record{}
	for _, fe := range d.frontends {
		frontends[strconv.Itoa(fe.index)] = fe.record()
	}
	return settings.Record{
		"uuid":        d.identity,
		"frontends":   frontends,
		"fe_override": d.override.String(),
	}
}

// saveDeviceLocked replaces the stored record of dev.
func (m *Manager) saveDeviceLocked(ctx context.Context, dev *Device) error {
	return m.store.Save(ctx, deviceKey(dev.identity), dev.record())
}

// SaveDevice persists the device with identity.
func (m *Manager) SaveDevice(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.registry.FindByIdentity(identity)
	if dev == nil {
		return ErrDeviceNotFound
	}
	return m.saveDeviceLocked(ctx, dev)
}
