package tuner

import "fmt"

// SignalType is the broadcast standard a frontend is built for.
type SignalType int

// Signal types. The zero value is not valid.
const (
	SignalTerrestrial SignalType = iota + 1
	SignalCable
	SignalATSC
)

// DefaultSignalType is used when nothing else decides.
const DefaultSignalType = SignalCable

var signalLabels = map[SignalType]string{
	SignalTerrestrial: "DVB-T",
	SignalCable:       "DVB-C",
	SignalATSC:        "ATSC",
}

// SignalTypes lists every valid type in display order.
func SignalTypes() []SignalType {
	return []SignalType{SignalTerrestrial, SignalCable, SignalATSC}
}

// SignalLabels lists every valid label in display order.
func SignalLabels() []string {
	types := SignalTypes()
	labels := make([]string, len(types))
	for i, t := range types {
		labels[i] = t.String()
	}
	return labels
}

// ParseSignalType maps a label such as "DVB-T" to its SignalType.
func ParseSignalType(label string) (SignalType, error) {
	for t, l := range signalLabels {
		if l == label {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSignalType, label)
}

// Valid reports whether t is one of the defined types.
func (t SignalType) Valid() bool {
	_, ok := signalLabels[t]
	return ok
}

// String returns the label, or "unknown".
func (t SignalType) String() string {
	if l, ok := signalLabels[t]; ok {
		return l
	}
	return "unknown"
}

// MarshalText encodes the label.
func (t SignalType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSignalType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a label.
func (t *SignalType) UnmarshalText(b []byte) error {
	v, err := ParseSignalType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
