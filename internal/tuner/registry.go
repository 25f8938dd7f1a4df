package tuner

// Registry is the set of known devices, keyed by identity. It carries no
// lock; the Manager serialises all access.
type Registry struct {
	byIdentity map[string]*Device
	order      []*Device
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byIdentity: make(map[string]*Device)}
}

// FindByDeviceID returns the device whose identity derives from id.
func (r *Registry) FindByDeviceID(id uint32) *Device {
	return r.byIdentity[DeriveIdentity(id)]
}

// FindByIdentity returns the device with identity, or nil.
func (r *Registry) FindByIdentity(identity string) *Device {
	return r.byIdentity[identity]
}

// Register adds d. It fails with ErrDeviceExists if the identity is taken.
func (r *Registry) Register(d *Device) error {
	if _, ok := r.byIdentity[d.identity]; ok {
		return ErrDeviceExists
	}
	r.byIdentity[d.identity] = d
	r.order = append(r.order, d)
	return nil
}

// Unregister removes d. Unknown devices are ignored.
func (r *Registry) Unregister(d *Device) {
	if r.byIdentity[d.identity] != d {
		return
	}
	delete(r.byIdentity, d.identity)
	for i, x := range r.order {
		if x == d {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Devices returns the devices in registration order.
func (r *Registry) Devices() []*Device {
	out := make([]*Device, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.order)
}
