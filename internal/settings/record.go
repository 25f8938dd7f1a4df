package settings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one persisted settings document.
type Record map[string]any

// GetString returns the string stored at key, or "" if absent or not a string.
func (r Record) GetString(key string) string {
	s, _ := r[key].(string) //nolint:errcheck // zero value on mismatch
	return s
}

// GetBool returns the bool at key and whether it was present as a bool.
func (r Record) GetBool(key string) (value, ok bool) {
	value, ok = r[key].(bool)
	return value, ok
}

// GetInt returns the integer at key. JSON numbers decode as float64, so both
// float64 and int are accepted.
func (r Record) GetInt(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// GetMap returns the nested record at key, or nil if absent or not a map.
func (r Record) GetMap(key string) Record {
	switch v := r[key].(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	}
	return nil
}

// Clone returns a deep copy of r with JSON-normalised values.
func (r Record) Clone() (Record, error) {
	data, err := encode(r)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func encode(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if r == nil {
		r = Record{}
	}
	return r, nil
}

// ValidateKey checks that key is a non-empty relative slash path with no
// empty or dot segments.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, " \t\n") {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
