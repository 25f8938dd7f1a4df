package tuner

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/tunerd/internal/settings"
)

// SetOverride changes the signal type of the device with identity and
// rebuilds its frontends to match. An empty value or the current type is a
// no-op. The device is saved after a rebuild.
func (m *Manager) SetOverride(ctx context.Context, identity, value string) error {
	if value == "" {
		return nil
	}
	t, err := ParseSignalType(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.unlockAndDispatch()

	dev := m.registry.FindByIdentity(identity)
	if dev == nil {
		return ErrDeviceNotFound
	}
	if dev.override == t {
		return nil
	}

	dev.override = t
	m.logger.Info("setting override type", "device", identity, "type", t.String())
	m.onOverrideChangedLocked(ctx, dev, t)

	m.queueDeviceLocked(EventDeviceUpdated, dev)
	if err := m.saveDeviceLocked(ctx, dev); err != nil {
		return fmt.Errorf("saving %s: %w", identity, err)
	}
	return nil
}

// onOverrideChangedLocked replaces frontends of dev that are not of type t.
//
// Frontends are taken from the head of the collection. The first one that
// already has type t ends the pass; every one before it is deleted and
// recreated at the tail with the same tuner index. A device whose
// frontends are all of one type is therefore fully rebuilt, while a mixed
// collection is only rebuilt up to its first frontend of type t.
func (m *Manager) onOverrideChangedLocked(ctx context.Context, dev *Device, t SignalType) {
	var feConf settings.Record
	conf, err := m.store.Load(ctx, deviceKey(dev.identity))
	switch {
	case err == nil:
		feConf = conf.GetMap("frontends")
	case !errors.Is(err, settings.ErrNotFound):
		m.logger.Warn("loading frontend settings failed", "device", dev.identity, "error", err)
	}

	// Each pass removes one frontend and adds at most one of type t, so
	// the loop ends.
	for len(dev.frontends) > 0 {
		fe := dev.frontends[0]
		if fe.signalType == t {
			break
		}

		index := fe.index
		m.deleteFrontendLocked(dev, fe)
		if _, err := m.createFrontendLocked(dev, feConf, t, index); err != nil {
			m.logger.Error("unable to recreate frontend", "device", dev.identity, "tuner", index, "error", err)
		}
	}
}
