package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/tunerd/internal/hdhomerun"
	"github.com/nerrad567/tunerd/internal/infrastructure/database"
	"github.com/nerrad567/tunerd/internal/settings"
	"github.com/nerrad567/tunerd/internal/tuner"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// startDiscoveryResponder answers discover requests on loopback with one
// two-tuner device.
func startDiscoveryResponder(t *testing.T, deviceID uint32) string {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // test cleanup

	reply, err := hdhomerun.NewPacket(hdhomerun.TypeDiscoverRpy).
		AddUint32(hdhomerun.TagDeviceType, hdhomerun.DeviceTypeTuner).
		AddUint32(hdhomerun.TagDeviceID, deviceID).
		Add(hdhomerun.TagTunerCount, []byte{2}).
		MarshalBinary()
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if req, err := hdhomerun.ParsePacket(buf[:n]); err == nil && req.Type == hdhomerun.TypeDiscoverReq {
				conn.WriteTo(reply, from) //nolint:errcheck // best effort
			}
		}
	}()
	return conn.LocalAddr().String()
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("TUNERD_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("TUNERD_CONFIG", writeTestConfig(t, `
database:
  path: ""
logging:
  level: error
  format: text
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

func TestRun_MQTTUnavailable(t *testing.T) {
	t.Setenv("TUNERD_CONFIG", writeTestConfig(t, fmt.Sprintf(`
database:
  path: %q
mqtt:
  enabled: true
  broker:
    host: "127.0.0.1"
    port: 1
api:
  host: "127.0.0.1"
  port: %d
logging:
  level: error
  format: text
`, filepath.Join(t.TempDir(), "tunerd.db"), freeTCPPort(t))))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the enabled MQTT broker is unreachable")
	}
}

// TestRun_DiscoversAndPersists starts the full service against a loopback
// discovery responder, reads the device back over HTTP, then shuts down and
// checks the saved record.
func TestRun_DiscoversAndPersists(t *testing.T) {
	const deviceID = 0x1A2B3C4D
	dbPath := filepath.Join(t.TempDir(), "tunerd.db")
	port := freeTCPPort(t)

	t.Setenv("TUNERD_CONFIG", writeTestConfig(t, fmt.Sprintf(`
database:
  path: %q
api:
  host: "127.0.0.1"
  port: %d
discovery:
  interval: 0s
  timeout: 200ms
  broadcast_address: %q
  session_timeout: 200ms
logging:
  level: error
  format: text
`, dbPath, port, startDiscoveryResponder(t, deviceID))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	identity := tuner.DeriveIdentity(deviceID)
	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/tuners/%s", port, identity)

	var info tuner.DeviceInfo
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			if resp.StatusCode == http.StatusOK {
				err = json.NewDecoder(resp.Body).Decode(&info)
				resp.Body.Close()
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				break
			}
			resp.Body.Close()
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("device %s never appeared (last error %v)", identity, err)
		}
		select {
		case err := <-done:
			cancel()
			t.Fatalf("run() exited early: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
	}

	if info.Override != tuner.SignalCable || len(info.Frontends) != 2 {
		t.Errorf("device = %+v, want DVB-C with 2 frontends", info)
	}
	if info.IPAddress != "127.0.0.1" {
		t.Errorf("ip_address = %q, want 127.0.0.1", info.IPAddress)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	db, err := database.Open(database.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()
	rec, err := settings.NewSQLiteStore(db.DB).Load(context.Background(), "adapters/"+identity)
	if err != nil {
		t.Fatalf("Load saved record: %v", err)
	}
	if got := rec.GetString("fe_override"); got != "DVB-C" {
		t.Errorf("saved fe_override = %q, want DVB-C", got)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TUNERD_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("TUNERD_CONFIG", "/etc/tunerd/config.yaml")
	if got := getConfigPath(); got != "/etc/tunerd/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
