package db

import (
	"fmt"
	"sync"
	"time"

	"github.com/nickyhof/ZeroTrustDB/audit"
	"github.com/nickyhof/ZeroTrustDB/auth"
	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/op"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

var (
	selectTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.select", MetricsPrefix), nil)
	joinTimer   = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.join", MetricsPrefix), nil)
	sumTimer    = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.aggregate_sum", MetricsPrefix), nil)
	writeTimer  = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.write", MetricsPrefix), nil)

	joinIndexScanCounter = metrics.GetOrRegisterCounter(fmt.Sprintf("%s.join.index_scan", MetricsPrefix), nil)
)

// Components is the state shared by every Engine of an instance.
type Components struct {
	Store        *ps.Store
	Transactions *ps.TransactionManager
	Database     *op.DatabaseOp
	Access       *auth.Controller
	Cache        *QueryCache
	Audit        *audit.Log
	Logger       logrus.FieldLogger
	Lock         sync.Locker
}

// NewComponents wires a fresh store to cipher, scheme and audit log.
func NewComponents(cipher *he.Cipher, scheme *commit.Scheme, log *audit.Log, cacheSize int, logger logrus.FieldLogger) *Components {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	store := ps.NewStore()
	return &Components{
		Store:        store,
		Transactions: ps.NewTransactionManager(store),
		Database:     op.NewDatabaseOp(store, cipher, scheme),
		Access:       auth.NewController(),
		Cache:        NewQueryCache(cacheSize),
		Audit:        log,
		Logger:       logger,
		Lock:         &sync.Mutex{},
	}
}

// Engine runs operations on behalf of one role. Engines sharing Components
// see the same tables and are serialized by the shared lock.
type Engine struct {
	*Components
	Role core.Role
}

func NewEngine(components *Components, role core.Role) *Engine {
	return &Engine{
		Components: components,
		Role:       role,
	}
}

func (engine *Engine) logger(action audit.Action, tables ...string) logrus.FieldLogger {
	fields := logrus.Fields{
		"role":   engine.Role.String(),
		"action": string(action),
	}
	if len(tables) == 1 {
		fields["table"] = tables[0]
	} else if len(tables) > 1 {
		fields["tables"] = tables
	}
	return engine.Logger.WithFields(fields)
}

func (engine *Engine) authorize(operation core.Operation, action audit.Action, tables ...string) error {
	if err := engine.Access.Check(engine.Role, operation); err != nil {
		engine.logger(action, tables...).Warn("permission denied")
		return err
	}
	return nil
}

func (engine *Engine) record(action audit.Action, tables []string, data any, condition *core.Condition) (ps.Transaction, error) {
	record, err := engine.Audit.Record(action, tables, data, condition, engine.Role)
	if err != nil {
		return ps.Transaction{}, err
	}
	return ps.Transaction{Id: record.Transaction, When: record.Timestamp, Author: engine.Role.String()}, nil
}

// normalizeCondition validates condition and resolves it against table.
func normalizeCondition(table core.Table, condition *core.Condition) (*core.Condition, error) {
	if condition == nil {
		return nil, nil
	}

	normalized, err := condition.Normalized()
	if err != nil {
		return nil, err
	}
	if _, err := table.ColumnIndex(normalized.Column); err != nil {
		return nil, err
	}
	return &normalized, nil
}

// conditionValue unwraps condition for commitments, keeping an absent
// condition an untyped nil.
func conditionValue(condition *core.Condition) any {
	if condition == nil {
		return nil
	}
	return *condition
}

func (engine *Engine) CreateTable(name string, columns ...core.Column) (CommitResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer writeTimer.UpdateSince(time.Now())

	startTime := time.Now()
	if err := engine.authorize(core.InsertOperation, audit.ActionCreateTable, name); err != nil {
		return CommitResult{}, err
	}

	table := core.Table{Name: name, Columns: columns}
	if _, err := engine.Database.CreateTable(table); err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.record(audit.ActionCreateTable, []string{name}, table.ColumnNames(), nil)
	if err != nil {
		return CommitResult{}, err
	}

	engine.logger(audit.ActionCreateTable, name).WithField("columns", table.ColumnNames()).Info("table created")

	return CommitResult{
		Transaction:      txn,
		TablesCreated:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) Insert(table string, values ...any) (CommitResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer writeTimer.UpdateSince(time.Now())

	startTime := time.Now()
	if err := engine.authorize(core.InsertOperation, audit.ActionInsert, table); err != nil {
		return CommitResult{}, err
	}

	tableOp, err := engine.Database.GetTable(table)
	if err != nil {
		return CommitResult{}, err
	}

	record, err := tableOp.Insert(values...)
	if err != nil {
		return CommitResult{}, err
	}
	engine.Cache.Invalidate(table)

	txn, err := engine.record(audit.ActionInsert, []string{table}, record.Values, nil)
	if err != nil {
		return CommitResult{}, err
	}

	engine.logger(audit.ActionInsert, table).WithField("position", record.Position).Debug("row inserted")

	return CommitResult{
		Transaction:      txn,
		RecordsWritten:   1,
		Commitments:      []commit.Commitment{record.Commitment},
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(values),
	}, nil
}

// Select decrypts the rows of table that match condition, or every row when
// condition is nil.
func (engine *Engine) Select(table string, condition *core.Condition) (QueryResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer selectTimer.UpdateSince(time.Now())

	startTime := time.Now()
	if err := engine.authorize(core.SelectOperation, audit.ActionSelect, table); err != nil {
		return QueryResult{}, err
	}

	tableOp, err := engine.Database.GetTable(table)
	if err != nil {
		return QueryResult{}, err
	}

	normalized, err := normalizeCondition(tableOp.Table, condition)
	if err != nil {
		return QueryResult{}, err
	}

	key := QueryKey{Kind: "select", Tables: []string{table}, Columns: tableOp.Table.ColumnNames(), Condition: normalized}
	if cached, ok := engine.Cache.Get(key); ok {
		result := cached.(QueryResult).clone()
		result.Cached = true
		result.ExecutionTimeSec = time.Since(startTime).Seconds()

		if _, err := engine.record(audit.ActionSelect, []string{table}, nil, normalized); err != nil {
			return QueryResult{}, err
		}
		engine.logger(audit.ActionSelect, table).Debug("cache hit")
		return result, nil
	}

	records, err := tableOp.Select(normalized)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Columns:     tableOp.Table.ColumnNames(),
		Rows:        make([]ResultRow, 0, len(records)),
		Condition:   normalized,
		RecordsRead: tableOp.Count(),
	}
	for _, record := range records {
		result.Rows = append(result.Rows, ResultRow{Values: record.Values, Proof: record.Commitment})
	}

	result.Proof, result.ConditionProof, err = engine.Database.Scheme.Generate(result.Values(), conditionValue(normalized))
	if err != nil {
		return QueryResult{}, err
	}
	result.ExecutionOps = result.RecordsRead
	result.ExecutionTimeSec = time.Since(startTime).Seconds()

	engine.Cache.Put(key, result.clone())

	if _, err := engine.record(audit.ActionSelect, []string{table}, nil, normalized); err != nil {
		return QueryResult{}, err
	}
	engine.logger(audit.ActionSelect, table).WithField("rows", len(result.Rows)).Debug("select")

	return result, nil
}

// Update re-encrypts the columns in set on every row matching condition.
// The change runs in its own nested transaction, so a failure leaves the
// table untouched and an enclosing transaction stays open.
//
// Row commitments are not recomputed: they keep attesting to the first
// value as it was inserted.
func (engine *Engine) Update(table string, condition *core.Condition, set map[string]any) (CommitResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer writeTimer.UpdateSince(time.Now())

	startTime := time.Now()
	if err := engine.authorize(core.UpdateOperation, audit.ActionUpdate, table); err != nil {
		return CommitResult{}, err
	}
	if condition == nil {
		return CommitResult{}, errors.Wrapf(core.ErrMissingCondition, "update %s", table)
	}

	tableOp, err := engine.Database.GetTable(table)
	if err != nil {
		return CommitResult{}, err
	}

	normalized, err := normalizeCondition(tableOp.Table, condition)
	if err != nil {
		return CommitResult{}, err
	}

	var updated int
	err = engine.savepoint(func() error {
		var err error
		updated, err = tableOp.UpdateWhere(*normalized, set)
		return err
	})
	engine.Cache.Invalidate(table)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.record(audit.ActionUpdate, []string{table}, set, normalized)
	if err != nil {
		return CommitResult{}, err
	}

	engine.logger(audit.ActionUpdate, table).WithField("rows", updated).Info("rows updated")

	return CommitResult{
		Transaction:      txn,
		RecordsUpdated:   updated,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     tableOp.Count(),
	}, nil
}

// Delete removes every row matching condition inside its own nested
// transaction and rebuilds the indexes of table.
func (engine *Engine) Delete(table string, condition *core.Condition) (CommitResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer writeTimer.UpdateSince(time.Now())

	startTime := time.Now()
	if err := engine.authorize(core.DeleteOperation, audit.ActionDelete, table); err != nil {
		return CommitResult{}, err
	}
	if condition == nil {
		return CommitResult{}, errors.Wrapf(core.ErrMissingCondition, "delete from %s", table)
	}

	tableOp, err := engine.Database.GetTable(table)
	if err != nil {
		return CommitResult{}, err
	}

	normalized, err := normalizeCondition(tableOp.Table, condition)
	if err != nil {
		return CommitResult{}, err
	}

	scanned := tableOp.Count()
	var deleted int
	err = engine.savepoint(func() error {
		var err error
		deleted, err = tableOp.DeleteWhere(*normalized)
		return err
	})
	engine.Cache.Invalidate(table)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.record(audit.ActionDelete, []string{table}, nil, normalized)
	if err != nil {
		return CommitResult{}, err
	}

	engine.logger(audit.ActionDelete, table).WithField("rows", deleted).Info("rows deleted")

	return CommitResult{
		Transaction:      txn,
		RecordsDeleted:   deleted,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     scanned,
	}, nil
}

// savepoint runs fn inside a nested transaction, rolling it back when fn
// fails and releasing it otherwise.
func (engine *Engine) savepoint(fn func() error) error {
	engine.Transactions.Begin()

	if err := fn(); err != nil {
		if rollbackErr := engine.Transactions.Rollback(); rollbackErr != nil {
			engine.Logger.WithError(rollbackErr).Error("failed to roll back savepoint")
		}
		return err
	}

	return engine.Transactions.Release()
}

// AggregateSum adds an integer column without decrypting individual rows.
func (engine *Engine) AggregateSum(table, column string) (SumResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()
	defer sumTimer.UpdateSince(time.Now())

	startTime := time.Now()
	if err := engine.authorize(core.SelectOperation, audit.ActionAggregateSum, table); err != nil {
		return SumResult{}, err
	}

	tableOp, err := engine.Database.GetTable(table)
	if err != nil {
		return SumResult{}, err
	}

	key := QueryKey{Kind: "sum", Tables: []string{table}, Columns: []string{column}}
	if cached, ok := engine.Cache.Get(key); ok {
		result := cached.(SumResult)
		result.Cached = true
		result.ExecutionTimeSec = time.Since(startTime).Seconds()

		if _, err := engine.record(audit.ActionAggregateSum, []string{table}, column, nil); err != nil {
			return SumResult{}, err
		}
		return result, nil
	}

	sum, err := tableOp.Sum(column)
	if err != nil {
		return SumResult{}, err
	}

	proof, err := engine.Database.Scheme.Commit(sum)
	if err != nil {
		return SumResult{}, err
	}

	result := SumResult{
		Table:            table,
		Column:           column,
		Sum:              sum,
		Proof:            proof,
		RecordsRead:      tableOp.Count(),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     tableOp.Count(),
	}
	engine.Cache.Put(key, result)

	if _, err := engine.record(audit.ActionAggregateSum, []string{table}, column, nil); err != nil {
		return SumResult{}, err
	}
	engine.logger(audit.ActionAggregateSum, table).WithField("column", column).Debug("sum")

	return result, nil
}

// BeginTransaction snapshots every table and returns the nesting depth.
func (engine *Engine) BeginTransaction() (int, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()

	depth := engine.Transactions.Begin()
	if _, err := engine.record(audit.ActionBegin, nil, nil, nil); err != nil {
		return depth, err
	}

	engine.logger(audit.ActionBegin).WithField("depth", depth).Debug("transaction started")
	return depth, nil
}

// Commit makes every open transaction permanent.
func (engine *Engine) Commit() error {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()

	n := engine.Transactions.Commit()
	if _, err := engine.record(audit.ActionCommit, nil, nil, nil); err != nil {
		return err
	}

	engine.logger(audit.ActionCommit).WithField("snapshots", n).Debug("transaction committed")
	return nil
}

// Rollback restores the state captured by the most recent BeginTransaction.
// It reports false when no transaction is open.
func (engine *Engine) Rollback() bool {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()

	if err := engine.Transactions.Rollback(); err != nil {
		engine.logger(audit.ActionRollback).Warn("no transaction to roll back")
		return false
	}
	engine.Cache.Purge()

	if _, err := engine.record(audit.ActionRollback, nil, nil, nil); err != nil {
		engine.logger(audit.ActionRollback).WithError(err).Error("failed to record rollback")
	}

	engine.logger(audit.ActionRollback).Info("transaction rolled back")
	return true
}

// ViewLogs returns the audit log, oldest first.
func (engine *Engine) ViewLogs() ([]audit.Record, error) {
	return engine.FindLogs(audit.Filter{})
}

func (engine *Engine) FindLogs(filter audit.Filter) ([]audit.Record, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()

	if err := engine.authorize(core.SelectOperation, ""); err != nil {
		return nil, err
	}
	return engine.Audit.Find(filter)
}

func (engine *Engine) ListTables() ([]string, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()

	if err := engine.authorize(core.SelectOperation, ""); err != nil {
		return nil, err
	}
	return engine.Database.TableNames(), nil
}

// Describe lists the columns of table.
func (engine *Engine) Describe(table string) (QueryResult, error) {
	engine.Lock.Lock()
	defer engine.Lock.Unlock()

	startTime := time.Now()
	if err := engine.authorize(core.SelectOperation, "", table); err != nil {
		return QueryResult{}, err
	}

	tableOp, err := engine.Database.GetTable(table)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{Columns: []string{"Column", "Type"}}
	for _, column := range tableOp.Table.Columns {
		result.Rows = append(result.Rows, ResultRow{Values: []any{column.Name, column.Type.String()}})
	}
	result.RecordsRead = tableOp.Count()
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	result.ExecutionOps = 1

	return result, nil
}

// VerifyRow checks a row proof against the row's values.
func (engine *Engine) VerifyRow(row ResultRow) bool {
	return engine.Database.Scheme.Verify(row.Proof, nil, row.CommittedValue(), nil)
}

// VerifyResult checks the result proof and, for filtered results, the
// condition proof.
func (engine *Engine) VerifyResult(result QueryResult) bool {
	return engine.Database.Scheme.Verify(result.Proof, result.ConditionProof, result.Values(), conditionValue(result.Condition))
}

func (engine *Engine) VerifySum(result SumResult) bool {
	return engine.Database.Scheme.Verify(result.Proof, nil, result.Sum, nil)
}
