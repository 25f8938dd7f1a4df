package tuner

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/tunerd/internal/settings"
)

// Frontend is one tuner unit of a Device. Its signal type never changes;
// a type change replaces the Frontend.
type Frontend struct {
	index      int
	signalType SignalType
	uuid       string
	name       string
	enabled    bool

	// device is the identity of the owning Device, cleared on delete.
	device  string
	session TunerSession
}

// Info returns a snapshot of the frontend.
func (fe *Frontend) Info() FrontendInfo {
	return FrontendInfo{
		UUID:       fe.uuid,
		Device:     fe.device,
		Index:      fe.index,
		SignalType: fe.signalType,
		Name:       fe.name,
		Enabled:    fe.enabled,
	}
}

// record is the persisted per-frontend section.
func (fe *Frontend) record() settings.Record {
	return settings.Record{
		"uuid":    fe.uuid,
		"tuner":   fe.index,
		"type":    fe.signalType.String(),
		"enabled": fe.enabled,
		"name":    fe.name,
	}
}

// FrontendInfo is a point-in-time copy of a Frontend.
type FrontendInfo struct {
	UUID       string     `json:"uuid"`
	Device     string     `json:"device"`
	Index      int        `json:"tuner"`
	SignalType SignalType `json:"type"`
	Name       string     `json:"name"`
	Enabled    bool       `json:"enabled"`
}

func defaultFrontendName(t SignalType, index int, address string) string {
	return fmt.Sprintf("HDHomeRun %s Tuner #%d (%s)", t, index, address)
}

// createFrontendLocked opens tuner unit index of dev for signal type t and
// appends it to dev. Saved settings for the index in feConf are applied.
func (m *Manager) createFrontendLocked(dev *Device, feConf settings.Record, t SignalType, index int) (*Frontend, error) {
	session, err := m.tuners.OpenTuner(dev.deviceID, dev.ip, index, t)
	if err != nil {
		return nil, fmt.Errorf("%w: %08X tuner %d: %w", ErrFrontendInit, dev.deviceID, index, err)
	}

	fe := &Frontend{
		index:      index,
		signalType: t,
		uuid:       FrontendIdentity(dev.identity, index),
		name:       defaultFrontendName(t, index, dev.address),
		enabled:    true,
		device:     dev.identity,
		session:    session,
	}
	if conf := feConf.GetMap(strconv.Itoa(index)); conf != nil {
		if enabled, ok := conf.GetBool("enabled"); ok {
			fe.enabled = enabled
		}
		if name := conf.GetString("name"); name != "" {
			fe.name = name
		}
	}

	dev.frontends = append(dev.frontends, fe)
	return fe, nil
}

// deleteFrontendLocked unlinks fe from dev and releases its session.
func (m *Manager) deleteFrontendLocked(dev *Device, fe *Frontend) {
	for i, f := range dev.frontends {
		if f == fe {
			dev.frontends = append(dev.frontends[:i], dev.frontends[i+1:]...)
			break
		}
	}

	if fe.session != nil {
		if err := fe.session.Close(); err != nil {
			m.logger.Warn("closing tuner session failed",
				"device", dev.identity, "tuner", fe.index, "error", err)
		}
		fe.session = nil
	}
	fe.device = ""
}
