package ps

import (
	"fmt"
	"testing"
	"time"

	"github.com/nickyhof/ZeroTrustDB/core"
)

func TestNewMemoryLedger(t *testing.T) {
	ledger, err := NewMemoryLedger()
	if err != nil {
		t.Fatalf("Failed to create memory ledger: %v", err)
	}

	if !ledger.IsInitialized() {
		t.Error("Expected ledger to be initialized")
	}
	if ledger.Len() != 0 {
		t.Errorf("Expected empty ledger, got %d records", ledger.Len())
	}
	if txn := ledger.LatestTransaction(); txn.Id != "" {
		t.Errorf("Expected no transaction on empty ledger, got %s", txn)
	}
}

func TestLedgerNotInitialized(t *testing.T) {
	var ledger *Ledger

	if ledger.IsInitialized() {
		t.Error("Expected nil ledger to report uninitialized")
	}

	if _, err := ledger.Append([]byte("x"), core.Identity{}, "x"); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if _, err := ledger.Entries(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestLedgerAppendAndEntries(t *testing.T) {
	ledger, err := NewMemoryLedger()
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	identity := core.Identity{Name: "admin", Email: "admin@zerotrustdb.local"}

	var ids []string
	for i := 1; i <= 12; i++ {
		txn, err := ledger.Append([]byte(fmt.Sprintf(`{"seq":%d}`, i)), identity, fmt.Sprintf("record %d", i))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if txn.Id == "" {
			t.Fatal("Transaction ID should not be empty")
		}
		if txn.Author != "admin <admin@zerotrustdb.local>" {
			t.Errorf("Unexpected author %q", txn.Author)
		}
		ids = append(ids, txn.Id)
	}

	if ledger.Len() != 12 {
		t.Errorf("Expected 12 records, got %d", ledger.Len())
	}

	entries, err := ledger.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 12 {
		t.Fatalf("Expected 12 entries, got %d", len(entries))
	}

	for i, entry := range entries {
		want := fmt.Sprintf(`{"seq":%d}`, i+1)
		if string(entry.Data) != want {
			t.Errorf("Entry %d: got %s, want %s", i, entry.Data, want)
		}
		if entry.Transaction.Id != ids[i] {
			t.Errorf("Entry %d: got transaction %s, want %s", i, entry.Transaction.Id, ids[i])
		}
	}

	if latest := ledger.LatestTransaction(); latest.Id != ids[len(ids)-1] {
		t.Errorf("Latest transaction %s, want %s", latest.Id, ids[len(ids)-1])
	}
}

func TestLedgerTransactionsSince(t *testing.T) {
	ledger, err := NewMemoryLedger()
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	identity := core.Identity{Name: "test", Email: "test@test.com"}
	start := time.Now().Add(-time.Minute)

	var first Transaction
	for i := 0; i < 3; i++ {
		txn, err := ledger.Append([]byte("{}"), identity, "record")
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if i == 0 {
			first = txn
		}
	}

	// first.When carries nanoseconds the stored commit does not
	if got := len(ledger.TransactionsSince(first.When)); got != 3 {
		t.Errorf("Expected 3 transactions since the first append, got %d", got)
	}
	if got := len(ledger.TransactionsSince(start)); got != 3 {
		t.Errorf("Expected 3 transactions, got %d", got)
	}
	if got := len(ledger.TransactionsSince(time.Now().Add(time.Hour))); got != 0 {
		t.Errorf("Expected no future transactions, got %d", got)
	}
}

func TestLedgerTreeLayout(t *testing.T) {
	ledger, err := NewMemoryLedger()
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	identity := core.Identity{Name: "test", Email: "test@test.com"}
	for i := 0; i < 3; i++ {
		if _, err := ledger.Append([]byte("{}"), identity, "record"); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	head, err := ledger.headCommit()
	if err != nil || head == nil {
		t.Fatalf("Expected a head commit, got %v", err)
	}
	root, err := head.Tree()
	if err != nil {
		t.Fatalf("Failed to read tree: %v", err)
	}
	if len(root.Entries) != 1 || root.Entries[0].Name != recordDir {
		t.Fatalf("Expected a single %s directory, got %v", recordDir, root.Entries)
	}

	records, err := ledger.records(head)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	want := []string{"00000001.json", "00000002.json", "00000003.json"}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, entry := range records {
		if entry.Name != want[i] {
			t.Errorf("Record %d: got %s, want %s", i, entry.Name, want[i])
		}
	}
}

func TestFileLedgerReopen(t *testing.T) {
	dir := t.TempDir()
	identity := core.Identity{Name: "test", Email: "test@test.com"}

	ledger, err := NewFileLedger(dir)
	if err != nil {
		t.Fatalf("Failed to create file ledger: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := ledger.Append([]byte(fmt.Sprintf("%d", i)), identity, "record"); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	reopened, err := NewFileLedger(dir)
	if err != nil {
		t.Fatalf("Failed to reopen file ledger: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("Expected 2 records after reopen, got %d", reopened.Len())
	}

	if _, err := reopened.Append([]byte("2"), identity, "record"); err != nil {
		t.Fatalf("Append after reopen failed: %v", err)
	}

	entries, err := reopened.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	for i, entry := range entries {
		if string(entry.Data) != fmt.Sprintf("%d", i) {
			t.Errorf("Entry %d: got %s", i, entry.Data)
		}
	}
}
