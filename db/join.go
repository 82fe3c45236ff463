package db

import (
	"time"

	"github.com/nickyhof/ZeroTrustDB/audit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/op"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// joinKey is a key taken from one of the two column indexes together with
// the row position it points at on each side (-1 when absent).
type joinKey struct {
	key   string
	left  int
	right int
}

// indexLookup resolves a key to the row position one column index holds.
type indexLookup func(key string) (int, bool)

// joinKeys lists the keys a join of kind emits: keys of the left index by
// ascending left position, then keys only the right index has by ascending
// right position. Matches on the other side are resolved through its index.
func joinKeys(left, right []ps.IndexEntry, inLeft, inRight indexLookup, kind core.JoinType) []joinKey {
	var keys []joinKey
	for _, entry := range left {
		rightPosition, matched := inRight(entry.Key)
		switch {
		case matched:
			keys = append(keys, joinKey{key: entry.Key, left: entry.Position, right: rightPosition})
		case kind == core.LeftJoin || kind == core.OuterJoin:
			keys = append(keys, joinKey{key: entry.Key, left: entry.Position, right: -1})
		}
	}

	if kind == core.RightJoin || kind == core.OuterJoin {
		for _, entry := range right {
			if _, ok := inLeft(entry.Key); !ok {
				keys = append(keys, joinKey{key: entry.Key, left: -1, right: entry.Position})
			}
		}
	}

	return keys
}

// joinSide decrypts the row at position, or returns a nil-filled
// placeholder for a missing side.
func joinSide(tableOp *op.TableOp, position int) ([]any, error) {
	if position < 0 {
		return make([]any, len(tableOp.Table.Columns)), nil
	}

	record, err := tableOp.Row(position)
	if err != nil {
		return nil, err
	}
	return record.Values, nil
}

func qualifiedColumns(table core.Table) []string {
	columns := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		columns[i] = table.Name + "." + column.Name
	}
	return columns
}

// Join pairs the rows of left and right whose leftColumn and rightColumn
// values are equal. Only the rows the two column indexes point at are
// decrypted, so a key held by several rows contributes its most recent row.
func (engine *Engine) Join(left, right, leftColumn, rightColumn string, kind core.JoinType) (QueryResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer joinTimer.UpdateSince(time.Now())

	startTime := time.Now()
	tables := []string{left, right}
	if err := engine.authorize(core.SelectOperation, audit.ActionJoin, tables...); err != nil {
		return QueryResult{}, err
	}

	switch kind {
	case core.InnerJoin, core.LeftJoin, core.RightJoin, core.OuterJoin:
	default:
		return QueryResult{}, errors.Wrapf(core.ErrUnknownJoinType, "%s", kind)
	}

	leftOp, err := engine.Database.GetTable(left)
	if err != nil {
		return QueryResult{}, err
	}
	rightOp, err := engine.Database.GetTable(right)
	if err != nil {
		return QueryResult{}, err
	}

	if _, err := leftOp.Table.ColumnIndex(leftColumn); err != nil {
		return QueryResult{}, err
	}
	if _, err := rightOp.Table.ColumnIndex(rightColumn); err != nil {
		return QueryResult{}, err
	}

	key := QueryKey{Kind: "join", Tables: tables, Columns: []string{leftColumn, rightColumn}, Join: kind.String()}
	if cached, ok := engine.Cache.Get(key); ok {
		result := cached.(QueryResult).clone()
		result.Cached = true
		result.ExecutionTimeSec = time.Since(startTime).Seconds()

		if _, err := engine.record(audit.ActionJoin, tables, key.String(), nil); err != nil {
			return QueryResult{}, err
		}
		return result, nil
	}

	leftEntries, err := leftOp.IndexEntries(leftColumn)
	if err != nil {
		return QueryResult{}, err
	}
	rightEntries, err := rightOp.IndexEntries(rightColumn)
	if err != nil {
		return QueryResult{}, err
	}
	joinIndexScanCounter.Inc(2)

	indexes := engine.Database.Store.Indexes()
	keys := joinKeys(leftEntries, rightEntries,
		func(key string) (int, bool) { return indexes.Lookup(left, leftColumn, key) },
		func(key string) (int, bool) { return indexes.Lookup(right, rightColumn, key) },
		kind)
	result := QueryResult{
		Columns: append(qualifiedColumns(leftOp.Table), qualifiedColumns(rightOp.Table)...),
		Rows:    make([]ResultRow, 0, len(keys)),
	}

	for _, k := range keys {
		leftValues, err := joinSide(leftOp, k.left)
		if err != nil {
			return QueryResult{}, err
		}
		rightValues, err := joinSide(rightOp, k.right)
		if err != nil {
			return QueryResult{}, err
		}

		row := ResultRow{Values: append(leftValues, rightValues...), wholeRow: true}
		row.Proof, err = engine.Database.Scheme.Commit(row.Values)
		if err != nil {
			return QueryResult{}, err
		}
		result.Rows = append(result.Rows, row)
	}

	result.Proof, _, err = engine.Database.Scheme.Generate(result.Values(), nil)
	if err != nil {
		return QueryResult{}, err
	}
	result.RecordsRead = len(keys)
	result.ExecutionOps = len(keys)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()

	engine.Cache.Put(key, result.clone())

	if _, err := engine.record(audit.ActionJoin, tables, key.String(), nil); err != nil {
		return QueryResult{}, err
	}
	engine.logger(audit.ActionJoin, tables...).WithFields(logrus.Fields{
		"kind": kind.String(),
		"rows": len(result.Rows),
	}).Debug("join")

	return result, nil
}
