package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"designforge/internal/types"
)

func testPacket(name string) *types.DesignPacket {
	return &types.DesignPacket{
		Specification: &types.ProductSpecification{
			ProductName:  name,
			ProductType:  types.ProductRobotic,
			Summary:      "summary of " + name,
			Constraints:  &types.Constraints{},
			PartsList:    []types.Part{},
			DiagramsPlan: []types.DiagramRequest{},
		},
		Images:    []types.GeneratedImage{},
		SelfCheck: types.SelfCheckResult{Issues: []string{}},
	}
}

func testRecord(id int64, name string) Record {
	return NewRecord(strconv.FormatInt(id, 10), time.UnixMilli(id), testPacket(name))
}

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, testRecord(int64(1000+i), name)); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	// Overwriting the same id must not create a duplicate.
	if err := s.Put(ctx, testRecord(1001, "b2")); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}

	got, err := s.Get(ctx, "1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProductName != "b2" || got.Packet.Specification.ProductName != "b2" {
		t.Fatalf("overwrite not visible: %+v", got)
	}
	if got.ProductType != types.ProductRobotic {
		t.Fatalf("product type = %q", got.ProductType)
	}

	recent, err := s.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	want := []string{"1002", "1001", "1000"}
	for i, id := range want {
		if recent[i].ID != id {
			t.Fatalf("recent[%d] = %s, want %s", i, recent[i].ID, id)
		}
	}

	limited, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "1002" {
		t.Fatalf("limited = %+v", limited)
	}

	if _, err := s.Get(ctx, "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing get err = %v, want ErrNotFound", err)
	}
	if err := s.Put(ctx, Record{ID: "not-a-number", Packet: testPacket("x")}); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
	if err := s.Put(ctx, Record{ID: "5"}); err == nil {
		t.Fatalf("expected error for missing packet")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := testRecord(7, "orig")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec.Packet.Specification.ProductName = "mutated"

	got, err := s.Get(ctx, "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Packet.Specification.ProductName != "orig" {
		t.Fatalf("store aliased caller packet: %q", got.Packet.Specification.ProductName)
	}
}

func TestFileStoreContractAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "designs.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseStore(t, s)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	recent, err := reopened.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != "1002" {
		t.Fatalf("reloaded records = %+v", recent)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "designs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSQLiteStoreContract(t *testing.T) {
	s, err := NewSQLStore(DriverSQLite, filepath.Join(t.TempDir(), "designs.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLStoreCacheInvalidatedOnPut(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLStore(DriverSQLite, filepath.Join(t.TempDir(), "designs.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, testRecord(10, "first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Get(ctx, "10"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := s.Put(ctx, testRecord(10, "second")); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	got, err := s.Get(ctx, "10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProductName != "second" {
		t.Fatalf("stale cache: %q", got.ProductName)
	}
}

func TestBindRewritesPlaceholdersForPostgres(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	if got := pg.bind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("postgres bind = %q", got)
	}
	lite := &SQLStore{driver: DriverSQLite}
	if got := lite.bind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite bind = %q", got)
	}
}
