package op

import (
	"iter"

	"github.com/nickyhof/ZeroTrustDB/codec"
	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/pkg/errors"
)

// Record is a decrypted row.
type Record struct {
	Position   int
	Values     []any
	Commitment commit.Commitment
}

type TableOp struct {
	Table  core.Table
	Store  *ps.Store
	Cipher *he.Cipher
	Scheme *commit.Scheme
}

func (op *TableOp) data() (*ps.TableData, error) {
	return op.Store.Get(op.Table.Name)
}

func (op *TableOp) Count() int {
	data, err := op.data()
	if err != nil {
		return 0
	}
	return len(data.Rows)
}

// Insert encrypts values, commits to the first one and appends the row.
func (op *TableOp) Insert(values ...any) (Record, error) {
	columns := op.Table.Columns
	if len(values) != len(columns) {
		return Record{}, errors.Wrapf(core.ErrArityMismatch, "table %s has %d columns, got %d values", op.Table.Name, len(columns), len(values))
	}

	normalized := make([]any, len(values))
	keys := make([]string, len(values))
	row := ps.Row{Values: make([]he.Ciphertext, len(values))}

	for i, column := range columns {
		value, err := core.NormalizeFor(column, values[i])
		if err != nil {
			return Record{}, err
		}

		ct, err := op.encrypt(value)
		if err != nil {
			return Record{}, errors.Wrapf(err, "encrypting %s.%s", op.Table.Name, column.Name)
		}

		normalized[i] = value
		keys[i] = core.Key(value)
		row.Values[i] = ct
	}

	commitment, err := op.Scheme.Commit(normalized[0])
	if err != nil {
		return Record{}, err
	}
	row.Commitment = commitment

	position, err := op.Store.Append(op.Table.Name, row, keys)
	if err != nil {
		return Record{}, err
	}

	return Record{Position: position, Values: normalized, Commitment: commitment}, nil
}

// Row decrypts the row at position.
func (op *TableOp) Row(position int) (Record, error) {
	data, err := op.data()
	if err != nil {
		return Record{}, err
	}
	if position < 0 || position >= len(data.Rows) {
		return Record{}, errors.Errorf("row %d out of range for table %s", position, op.Table.Name)
	}
	return op.decryptRow(position, data.Rows[position])
}

// Scan decrypts every row in order.
func (op *TableOp) Scan() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		data, err := op.data()
		if err != nil {
			yield(Record{}, err)
			return
		}

		for position, row := range data.Rows {
			record, err := op.decryptRow(position, row)
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

// Select returns the decrypted rows matching condition, or every row when
// condition is nil.
func (op *TableOp) Select(condition *core.Condition) ([]Record, error) {
	match, err := op.matcher(condition)
	if err != nil {
		return nil, err
	}

	var records []Record
	for record, err := range op.Scan() {
		if err != nil {
			return nil, err
		}
		if match(record) {
			records = append(records, record)
		}
	}
	return records, nil
}

// UpdateWhere re-encrypts the columns named in set on every row matching
// condition and rebuilds the indexes. Row commitments are left as they were
// at insert time.
func (op *TableOp) UpdateWhere(condition core.Condition, set map[string]any) (int, error) {
	match, err := op.matcher(&condition)
	if err != nil {
		return 0, err
	}

	type assignment struct {
		column int
		value  any
	}
	assignments := make([]assignment, 0, len(set))
	for name, raw := range set {
		column, err := op.Table.ColumnIndex(name)
		if err != nil {
			return 0, err
		}
		value, err := core.NormalizeFor(op.Table.Columns[column], raw)
		if err != nil {
			return 0, err
		}
		assignments = append(assignments, assignment{column: column, value: value})
	}

	matched, err := op.Select(nil)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, record := range matched {
		if !match(record) {
			continue
		}
		for _, a := range assignments {
			ct, err := op.encrypt(a.value)
			if err != nil {
				return updated, err
			}
			if err := op.Store.SetCell(op.Table.Name, record.Position, a.column, ct); err != nil {
				return updated, err
			}
		}
		updated++
	}

	if updated > 0 {
		if err := op.RebuildIndexes(); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// DeleteWhere removes every row matching condition and rebuilds the indexes.
func (op *TableOp) DeleteWhere(condition core.Condition) (int, error) {
	match, err := op.matcher(&condition)
	if err != nil {
		return 0, err
	}

	data, err := op.data()
	if err != nil {
		return 0, err
	}

	kept := make([]ps.Row, 0, len(data.Rows))
	for position, row := range data.Rows {
		record, err := op.decryptRow(position, row)
		if err != nil {
			return 0, err
		}
		if !match(record) {
			kept = append(kept, row)
		}
	}

	deleted := len(data.Rows) - len(kept)
	if deleted == 0 {
		return 0, nil
	}

	if err := op.Store.ReplaceRows(op.Table.Name, kept); err != nil {
		return 0, err
	}
	return deleted, op.RebuildIndexes()
}

// RebuildIndexes recomputes every column index from the decrypted rows.
func (op *TableOp) RebuildIndexes() error {
	columns := op.Table.Columns
	keys := make([][]string, len(columns))

	for record, err := range op.Scan() {
		if err != nil {
			return err
		}
		for i, value := range record.Values {
			keys[i] = append(keys[i], core.Key(value))
		}
	}

	for i, column := range columns {
		if err := op.Store.Indexes().Rebuild(op.Table.Name, column.Name, keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// IndexEntries returns the index of column ordered by row position.
func (op *TableOp) IndexEntries(column string) ([]ps.IndexEntry, error) {
	if _, err := op.Table.ColumnIndex(column); err != nil {
		return nil, err
	}

	idx, ok := op.Store.Indexes().GetIndex(op.Table.Name, column)
	if !ok {
		return nil, errors.Wrapf(core.ErrColumnNotFound, "no index on %s.%s", op.Table.Name, column)
	}
	return idx.Ordered(), nil
}

// Sum adds the ciphertexts of an integer column homomorphically, starting
// from the first row, and decrypts only the total.
func (op *TableOp) Sum(column string) (int64, error) {
	position, err := op.Table.ColumnIndex(column)
	if err != nil {
		return 0, err
	}
	if op.Table.Columns[position].Type != core.IntType {
		return 0, errors.Wrapf(core.ErrColumnNotNumeric, "%s.%s is %s", op.Table.Name, column, op.Table.Columns[position].Type)
	}

	data, err := op.data()
	if err != nil {
		return 0, err
	}
	if len(data.Rows) == 0 {
		return 0, errors.Wrapf(core.ErrEmptyAggregationTarget, "%s", op.Table.Name)
	}

	total := data.Rows[0].Values[position].Clone()
	for _, row := range data.Rows[1:] {
		total, err = op.Cipher.Add(total, row.Values[position])
		if err != nil {
			return 0, errors.Wrapf(err, "summing %s.%s", op.Table.Name, column)
		}
	}

	return op.Cipher.DecryptInt64(total)
}

func (op *TableOp) matcher(condition *core.Condition) (func(Record) bool, error) {
	if condition == nil {
		return func(Record) bool { return true }, nil
	}

	normalized, err := condition.Normalized()
	if err != nil {
		return nil, err
	}
	column, err := op.Table.ColumnIndex(normalized.Column)
	if err != nil {
		return nil, err
	}

	return func(record Record) bool {
		return normalized.Matches(record.Values[column])
	}, nil
}

func (op *TableOp) encrypt(value any) (he.Ciphertext, error) {
	switch v := value.(type) {
	case int64:
		return op.Cipher.EncryptInt64(v)
	case string:
		return op.Cipher.Encrypt(codec.Encode(v))
	default:
		return he.Ciphertext{}, errors.Wrapf(core.ErrValueType, "cannot encrypt %T", value)
	}
}

func (op *TableOp) decryptRow(position int, row ps.Row) (Record, error) {
	values := make([]any, len(row.Values))
	for i, ct := range row.Values {
		plaintext, err := op.Cipher.Decrypt(ct)
		if err != nil {
			return Record{}, errors.Wrapf(err, "decrypting %s row %d", op.Table.Name, position)
		}

		switch op.Table.Columns[i].Type {
		case core.IntType:
			if !plaintext.IsInt64() {
				return Record{}, errors.Wrapf(he.ErrIntegerOverflow, "%s row %d column %s", op.Table.Name, position, op.Table.Columns[i].Name)
			}
			values[i] = plaintext.Int64()
		default:
			values[i] = codec.Decode(plaintext)
		}
	}

	return Record{Position: position, Values: values, Commitment: row.Commitment}, nil
}
