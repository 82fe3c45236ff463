package ps

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
)

func testRow(values ...int64) Row {
	row := Row{Commitment: commit.Commitment{Digest: "digest"}}
	for _, value := range values {
		row.Values = append(row.Values, he.Ciphertext{
			Mask:  []uint64{uint64(value), 1},
			Body:  big.NewInt(value),
			Terms: 1,
		})
	}
	return row
}

func newUsersStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	if err := store.CreateTable(core.Table{Name: "users", Columns: userColumns}); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return store
}

func TestStoreCreateTable(t *testing.T) {
	store := newUsersStore(t)

	if !store.Exists("users") {
		t.Error("Expected users to exist")
	}

	err := store.CreateTable(core.Table{Name: "users", Columns: userColumns})
	if !errors.Is(err, core.ErrTableAlreadyExists) {
		t.Errorf("Expected ErrTableAlreadyExists, got %v", err)
	}

	err = store.CreateTable(core.Table{Name: "empty"})
	if !errors.Is(err, core.ErrInvalidSchema) {
		t.Errorf("Expected ErrInvalidSchema, got %v", err)
	}

	if _, ok := store.Indexes().GetIndex("users", "name"); !ok {
		t.Error("Expected index on users.name")
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore()

	_, err := store.Get("nope")
	if !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestStoreListTables(t *testing.T) {
	store := NewStore()
	for _, name := range []string{"orders", "users", "accounts"} {
		if err := store.CreateTable(core.Table{Name: name, Columns: userColumns}); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	want := []string{"accounts", "orders", "users"}
	if got := store.ListTables(); !reflect.DeepEqual(got, want) {
		t.Errorf("Got %v, want %v", got, want)
	}
}

func TestStoreAppend(t *testing.T) {
	store := newUsersStore(t)

	position, err := store.Append("users", testRow(1, 2), []string{"i:1", "s:Alice"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if position != 0 {
		t.Errorf("Expected position 0, got %d", position)
	}

	position, _ = store.Append("users", testRow(2, 3), []string{"i:2", "s:Alice"})
	if got, _ := store.Indexes().Lookup("users", "name", "s:Alice"); got != position {
		t.Errorf("Expected last writer at %d, got %d", position, got)
	}

	_, err = store.Append("users", testRow(1), []string{"i:1"})
	if !errors.Is(err, core.ErrArityMismatch) {
		t.Errorf("Expected ErrArityMismatch, got %v", err)
	}

	_, err = store.Append("missing", testRow(1, 2), []string{"i:1", "s:x"})
	if !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestStoreSetCellAndReplaceRows(t *testing.T) {
	store := newUsersStore(t)
	store.Append("users", testRow(1, 2), []string{"i:1", "s:a"})

	replacement := testRow(42)
	if err := store.SetCell("users", 0, 1, replacement.Values[0]); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	data, _ := store.Get("users")
	if data.Rows[0].Values[1].Body.Int64() != 42 {
		t.Errorf("Expected updated cell")
	}

	if err := store.SetCell("users", 3, 0, replacement.Values[0]); err == nil {
		t.Error("Expected out of range error")
	}
	if err := store.SetCell("users", 0, 9, replacement.Values[0]); !errors.Is(err, core.ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}

	if err := store.ReplaceRows("users", nil); err != nil {
		t.Fatalf("ReplaceRows failed: %v", err)
	}
	data, _ = store.Get("users")
	if len(data.Rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(data.Rows))
	}
}

func TestStoreCloneIsDeep(t *testing.T) {
	store := newUsersStore(t)
	store.Append("users", testRow(1, 2), []string{"i:1", "s:a"})

	clone := store.Clone()

	data, _ := store.Get("users")
	data.Rows[0].Values[0].Mask[0] = 99
	data.Rows[0].Values[0].Body.SetInt64(99)
	store.Append("users", testRow(3, 4), []string{"i:3", "s:b"})

	cloned, _ := clone.Get("users")
	if len(cloned.Rows) != 1 {
		t.Fatalf("Expected 1 row in clone, got %d", len(cloned.Rows))
	}
	if cloned.Rows[0].Values[0].Mask[0] != 1 || cloned.Rows[0].Values[0].Body.Int64() != 1 {
		t.Error("Clone shares ciphertext state with the original")
	}
	if _, ok := clone.Indexes().Lookup("users", "id", "i:3"); ok {
		t.Error("Clone shares index state with the original")
	}
}
