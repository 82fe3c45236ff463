// Package audit keeps an append-only log of the operations run against an
// engine. Records are committed to a ps.Ledger and cannot be removed.
package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

type Log struct {
	ledger *ps.Ledger
	email  string
}

// NewLog appends to ledger. Commits are authored by the acting role at
// email.
func NewLog(ledger *ps.Ledger, email string) (*Log, error) {
	if !ledger.IsInitialized() {
		return nil, ps.ErrNotInitialized
	}
	return &Log{ledger: ledger, email: email}, nil
}

// Record appends an entry for action. data is hashed, never stored;
// condition is stored as given.
func (l *Log) Record(action Action, tables []string, data any, condition *core.Condition, role core.Role) (Record, error) {
	if action == "" {
		return Record{}, errors.New("record audit event: action is required")
	}

	hash, err := HashData(data)
	if err != nil {
		return Record{}, errors.Wrap(err, "record audit event")
	}

	record := Record{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Tables:    tables,
		DataHash:  hash,
		Condition: condition,
		Role:      role,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return Record{}, errors.Wrap(err, "record audit event: encode")
	}

	author := core.Identity{Name: role.String(), Email: l.email}
	txn, err := l.ledger.Append(payload, author, fmt.Sprintf("%s %v", action, tables))
	if err != nil {
		return Record{}, errors.Wrap(err, "record audit event: append")
	}

	record.Transaction = txn.Id
	return record, nil
}

// View returns every record, oldest first.
func (l *Log) View() ([]Record, error) {
	return l.Find(Filter{})
}

// Find returns the records matching filter, oldest first.
func (l *Log) Find(filter Filter) ([]Record, error) {
	entries, err := l.ledger.Entries()
	if err != nil {
		return nil, errors.Wrap(err, "read audit log")
	}

	// Records committed before Since are skipped without decoding.
	var recent map[string]bool
	if filter.Since != nil {
		recent = make(map[string]bool)
		for _, txn := range l.ledger.TransactionsSince(*filter.Since) {
			recent[txn.Id] = true
		}
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if recent != nil && !recent[entry.Transaction.Id] {
			continue
		}

		var record Record
		if err := json.Unmarshal(entry.Data, &record); err != nil {
			return nil, errors.Wrapf(err, "decode audit record in %s", entry.Transaction.Id)
		}
		record.Transaction = entry.Transaction.Id

		if !filter.matches(record) {
			continue
		}
		records = append(records, record)
		if filter.Limit > 0 && len(records) == filter.Limit {
			break
		}
	}
	return records, nil
}

func (l *Log) Len() int {
	return l.ledger.Len()
}

// HashData returns the hex BLAKE2b-256 digest of the JSON encoding of data,
// or "" for nil.
func HashData(data any) (string, error) {
	if data == nil {
		return "", nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode audit data: %w", err)
	}

	sum := blake2b.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
