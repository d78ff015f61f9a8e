package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tilegate/gethook/player"
)

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "gethook.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err = store.EnsureDataStructure(context.Background()); err != nil {
		t.Fatalf("ensure data structure: %v", err)
	}
	return store
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	for _, table := range []string{EntityVersionTable, AccountTable} {
		ok, err := store.TableExists(ctx, table)
		if err != nil || !ok {
			t.Fatalf("table %s exists = %v, %v", table, ok, err)
		}
	}
	if ok, err := store.TableExists(ctx, "Nope"); err != nil || ok {
		t.Fatalf("missing table exists = %v, %v", ok, err)
	}

	if v, ok, err := store.EntityVersion(ctx, EntityVersionTable); err != nil || !ok || v != 1 {
		t.Fatalf("EntityVersion version = %d %v %v", v, ok, err)
	}
	if _, ok, err := store.EntityVersion(ctx, "Protector"); err != nil || ok {
		t.Fatalf("unknown entity found: %v %v", ok, err)
	}

	steps := []struct {
		set  uint8
		want uint8
	}{{2, 2}, {5, 5}, {3, 5}, {5, 5}}
	for _, step := range steps {
		if err := store.AddOrUpdateEntityVersion(ctx, "Protector", step.set); err != nil {
			t.Fatal(err)
		}
		v, ok, err := store.EntityVersion(ctx, "Protector")
		if err != nil || !ok || v != step.want {
			t.Fatalf("after set %d version = %d %v %v, want %d", step.set, v, ok, err, step.want)
		}
	}

	if err := store.AddOrUpdateEntityVersion(ctx, "", 1); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("empty name: %v", err)
	}

	added, err := store.AddAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = store.AddAccount(ctx, "alice"); err == nil {
		t.Fatal("duplicate account accepted")
	}
	found, ok, err := AccountLookup{Store: store, Timeout: time.Second}.AccountByName("alice")
	if err != nil || !ok || found != added {
		t.Fatalf("lookup = %+v %v %v, want %+v", found, ok, err, added)
	}
	if _, ok, err = store.FindAccount(ctx, "bob"); err != nil || ok {
		t.Fatalf("bob found: %v %v", ok, err)
	}

	reg := player.NewRegistry()
	if id, err := reg.MatchAccountID(AccountLookup{Store: store}, "alice"); err != nil || id != added.ID {
		t.Fatalf("MatchAccountID = %d %v", id, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	testStore(t, openSQLite(t))
}

func TestEnsureDataStructureIsIdempotent(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	if err := store.AddOrUpdateEntityVersion(ctx, EntityVersionTable, 4); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureDataStructure(ctx); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := store.EntityVersion(ctx, EntityVersionTable); v != 4 {
		t.Fatalf("version lowered to %d", v)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store := openSQLite(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, _, err := store.EntityVersion(context.Background(), EntityVersionTable); err == nil {
		t.Fatal("query on closed store succeeded")
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("err = %v", err)
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("GETHOOK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GETHOOK_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	db := "gethook_test_" + time.Now().Format("20060102150405")
	store, err := OpenMongo(ctx, uri, db, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		store.client.Database(db).Drop(ctx)
		store.Close()
	}()

	if err = store.EnsureDataStructure(ctx); err != nil {
		t.Fatal(err)
	}
	testStore(t, store)
}
