package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/pkg/errors"
)

const recordDir = "records"

// Entry is one appended record together with the commit that holds it.
type Entry struct {
	Transaction Transaction
	Data        []byte
}

func recordName(seq int) string {
	return fmt.Sprintf("%08d.json", seq)
}

func recordPath(seq int) string {
	return recordDir + "/" + recordName(seq)
}

// Append stores data as the next record and commits it on behalf of author.
func (l *Ledger) Append(data []byte, author core.Identity, message string) (Transaction, error) {
	if err := l.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	head, err := l.headCommit()
	if err != nil {
		return Transaction{}, err
	}

	blob, err := l.writeBlob(data)
	if err != nil {
		return Transaction{}, err
	}

	tree, err := l.recordTree(head, l.count+1, blob)
	if err != nil {
		return Transaction{}, errors.Wrap(err, "failed to update ledger tree")
	}

	txn, err := l.commitTree(head, tree, author, message)
	if err != nil {
		return Transaction{}, err
	}

	l.count++
	return txn, nil
}

// Len returns the number of records in the ledger.
func (l *Ledger) Len() int {
	if !l.IsInitialized() {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Entries returns every record, oldest first.
func (l *Ledger) Entries() ([]Entry, error) {
	if err := l.ensureInitialized(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	commits, err := l.history()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(commits))
	for i, commit := range commits {
		data, err := l.readRecord(commit, i+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Transaction: transactionOf(commit), Data: data})
	}

	return entries, nil
}

// history returns the commits reachable from HEAD, oldest first.
func (l *Ledger) history() ([]*object.Commit, error) {
	commit, err := l.headCommit()
	if err != nil || commit == nil {
		return nil, err
	}

	commits := []*object.Commit{commit}
	for commit.NumParents() > 0 {
		if commit, err = commit.Parent(0); err != nil {
			return nil, fmt.Errorf("failed to walk ledger history: %w", err)
		}
		commits = append(commits, commit)
	}

	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}
