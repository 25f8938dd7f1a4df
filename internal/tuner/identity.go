package tuner

import (
	"crypto/sha1" //nolint:gosec // identity key, not a security boundary
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// DeriveIdentity returns the stable identity for a device id: lowercase hex
// SHA-1 of the id's four little-endian bytes.
func DeriveIdentity(deviceID uint32) string {
	sum := identityBytes(deviceID)
	return hex.EncodeToString(sum[:])
}

func identityBytes(deviceID uint32) [sha1.Size]byte {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], deviceID)
	return sha1.Sum(raw[:]) //nolint:gosec // see import
}

// FrontendIdentity returns the stable identity of tuner index within a device.
func FrontendIdentity(deviceIdentity string, tunerIndex int) string {
	sum := sha1.Sum([]byte(deviceIdentity + "/" + strconv.Itoa(tunerIndex))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// deviceKey is the settings key of a device record.
func deviceKey(identity string) string {
	return "adapters/" + identity
}
