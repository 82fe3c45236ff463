package ps

import "github.com/pkg/errors"

var ErrNoOpenTransaction = errors.New("no open transaction")

// TransactionManager keeps a stack of deep copies of a store. Rolling back
// swaps the most recent copy in wholesale.
type TransactionManager struct {
	store     *Store
	snapshots []*Store
}

func NewTransactionManager(store *Store) *TransactionManager {
	return &TransactionManager{store: store}
}

// Begin snapshots the store and returns the new nesting depth.
func (tm *TransactionManager) Begin() int {
	tm.snapshots = append(tm.snapshots, tm.store.Clone())
	return len(tm.snapshots)
}

// Commit discards every open snapshot and returns how many there were.
func (tm *TransactionManager) Commit() int {
	n := len(tm.snapshots)
	tm.snapshots = nil
	return n
}

// Release discards the most recent snapshot without restoring it.
func (tm *TransactionManager) Release() error {
	if len(tm.snapshots) == 0 {
		return ErrNoOpenTransaction
	}
	tm.snapshots[len(tm.snapshots)-1] = nil
	tm.snapshots = tm.snapshots[:len(tm.snapshots)-1]
	return nil
}

// Rollback restores the store to the most recent snapshot.
func (tm *TransactionManager) Rollback() error {
	if len(tm.snapshots) == 0 {
		return ErrNoOpenTransaction
	}

	snapshot := tm.snapshots[len(tm.snapshots)-1]
	tm.snapshots[len(tm.snapshots)-1] = nil
	tm.snapshots = tm.snapshots[:len(tm.snapshots)-1]

	tm.store.restore(snapshot)
	return nil
}

// Depth returns the number of open snapshots.
func (tm *TransactionManager) Depth() int {
	return len(tm.snapshots)
}
