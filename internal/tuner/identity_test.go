package tuner

import "testing"

func TestDeriveIdentity_KnownValues(t *testing.T) {
	tests := []struct {
		id   uint32
		want string
	}{
		{0x1A2B3C4D, "e15966227a85f7a9d61490331843f8fed48ad504"},
		{0x00000000, "9069ca78e7450a285173431b3e52c5c25299e473"},
	}
	for _, tt := range tests {
		if got := DeriveIdentity(tt.id); got != tt.want {
			t.Errorf("DeriveIdentity(%08X) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestDeriveIdentity_Deterministic(t *testing.T) {
	a := DeriveIdentity(0xDEADBEEF)
	b := DeriveIdentity(0xDEADBEEF)
	if a != b {
		t.Errorf("DeriveIdentity not deterministic: %s != %s", a, b)
	}
	if len(a) != 40 {
		t.Errorf("identity length = %d, want 40", len(a))
	}
}

func TestDeriveIdentity_Distinct(t *testing.T) {
	seen := make(map[string]uint32)
	for i := uint32(0); i < 20000; i++ {
		id := i * 2654435761 // spread across the 32-bit space
		s := DeriveIdentity(id)
		if prev, ok := seen[s]; ok && prev != id {
			t.Fatalf("collision between %08X and %08X", prev, id)
		}
		seen[s] = id
	}
}

func TestFrontendIdentity(t *testing.T) {
	dev := DeriveIdentity(testDeviceID)
	if FrontendIdentity(dev, 0) == FrontendIdentity(dev, 1) {
		t.Error("frontend identities should differ by index")
	}
	if FrontendIdentity(dev, 0) != FrontendIdentity(dev, 0) {
		t.Error("frontend identity should be deterministic")
	}
	if FrontendIdentity(dev, 0) == dev {
		t.Error("frontend identity should differ from device identity")
	}
}
