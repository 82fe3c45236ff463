package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies the commit that appended a ledger record.
type Transaction struct {
	Id     string
	When   time.Time
	Author string // "Name <email>" format
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func transactionOf(commit *object.Commit) Transaction {
	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = commit.Author.String()
	}

	return Transaction{
		Id:     commit.Hash.String(),
		When:   commit.Committer.When,
		Author: author,
	}
}

// LatestTransaction returns the commit of the most recent record, or the
// zero Transaction for an empty ledger.
func (l *Ledger) LatestTransaction() Transaction {
	if !l.IsInitialized() {
		return Transaction{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	commit, err := l.headCommit()
	if err != nil || commit == nil {
		return Transaction{}
	}
	return transactionOf(commit)
}

// TransactionsSince returns the commits of the records appended at or after
// asof, oldest first. Commit times have one second resolution, so asof is
// truncated to the second.
func (l *Ledger) TransactionsSince(asof time.Time) []Transaction {
	if !l.IsInitialized() {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	commits, err := l.history()
	if err != nil {
		return nil
	}

	asof = asof.Truncate(time.Second)

	var transactions []Transaction
	for _, commit := range commits {
		if commit.Committer.When.Before(asof) {
			continue
		}
		transactions = append(transactions, transactionOf(commit))
	}
	return transactions
}
