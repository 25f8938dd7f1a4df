package settings_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/tunerd/internal/infrastructure/database"
	"github.com/nerrad567/tunerd/internal/settings"
	_ "github.com/nerrad567/tunerd/migrations"
)

func openSQLiteStore(t *testing.T) *settings.SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return settings.NewSQLiteStore(db.DB)
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s settings.Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLiteStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, settings.NewMemoryStore()) })
}

func TestStore_LoadMissing(t *testing.T) {
	stores(t, func(t *testing.T, s settings.Store) {
		_, err := s.Load(context.Background(), "adapters/missing")
		if !errors.Is(err, settings.ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s settings.Store) {
		ctx := context.Background()
		rec := settings.Record{
			"uuid":        "abc",
			"fe_override": "DVB-T",
			"frontends": settings.Record{
				"0": settings.Record{"tuner": 0, "enabled": true, "name": "first"},
				"1": settings.Record{"tuner": 1, "enabled": false},
			},
		}
		if err := s.Save(ctx, "adapters/abc", rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := s.Load(ctx, "adapters/abc")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.GetString("fe_override") != "DVB-T" {
			t.Errorf("fe_override = %q, want DVB-T", got.GetString("fe_override"))
		}

		fes := got.GetMap("frontends")
		if len(fes) != 2 {
			t.Fatalf("frontends len = %d, want 2", len(fes))
		}
		first := fes.GetMap("0")
		if idx, ok := first.GetInt("tuner"); !ok || idx != 0 {
			t.Errorf("tuner = %d, %v; want 0, true", idx, ok)
		}
		if enabled, ok := first.GetBool("enabled"); !ok || !enabled {
			t.Errorf("enabled = %v, %v; want true, true", enabled, ok)
		}
		if fes.GetMap("1").GetString("name") != "" {
			t.Error("absent name should read as empty")
		}
	})
}

func TestStore_SaveReplaces(t *testing.T) {
	stores(t, func(t *testing.T, s settings.Store) {
		ctx := context.Background()
		if err := s.Save(ctx, "adapters/x", settings.Record{"a": "1", "b": "2"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := s.Save(ctx, "adapters/x", settings.Record{"a": "3"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.Load(ctx, "adapters/x")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(got, settings.Record{"a": "3"}) {
			t.Errorf("Load() = %v, want only a=3", got)
		}
	})
}

func TestStore_DeleteAndKeys(t *testing.T) {
	stores(t, func(t *testing.T, s settings.Store) {
		ctx := context.Background()
		for _, k := range []string{"adapters/b", "adapters/a", "other/c"} {
			if err := s.Save(ctx, k, settings.Record{}); err != nil {
				t.Fatalf("Save(%s) error = %v", k, err)
			}
		}

		keys, err := s.Keys(ctx, "adapters/")
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if !reflect.DeepEqual(keys, []string{"adapters/a", "adapters/b"}) {
			t.Errorf("Keys() = %v", keys)
		}

		if err := s.Delete(ctx, "adapters/a"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "adapters/a"); err != nil {
			t.Errorf("second Delete() error = %v", err)
		}
		if _, err := s.Load(ctx, "adapters/a"); !errors.Is(err, settings.ErrNotFound) {
			t.Errorf("Load() after Delete error = %v, want ErrNotFound", err)
		}

		all, err := s.Keys(ctx, "")
		if err != nil {
			t.Fatalf("Keys(\"\") error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("Keys(\"\") = %v, want 2 keys", all)
		}
	})
}

func TestStore_InvalidKey(t *testing.T) {
	stores(t, func(t *testing.T, s settings.Store) {
		ctx := context.Background()
		for _, key := range []string{"", "/adapters/x", "adapters/", "adapters//x", "adapters/../x", "a b"} {
			if err := s.Save(ctx, key, settings.Record{}); !errors.Is(err, settings.ErrInvalidKey) {
				t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
			}
			if _, err := s.Load(ctx, key); !errors.Is(err, settings.ErrInvalidKey) {
				t.Errorf("Load(%q) error = %v, want ErrInvalidKey", key, err)
			}
		}
	})
}

func TestMemoryStore_IsolatesCallerMutation(t *testing.T) {
	s := settings.NewMemoryStore()
	ctx := context.Background()

	rec := settings.Record{"name": "before"}
	if err := s.Save(ctx, "adapters/x", rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rec["name"] = "after"

	got, err := s.Load(ctx, "adapters/x")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.GetString("name") != "before" {
		t.Errorf("stored record changed with caller map: %v", got)
	}
}
