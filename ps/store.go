package ps

import (
	"sort"

	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/pkg/errors"
)

// Row is one stored row: a ciphertext per column plus the commitment taken
// over its first value when it was inserted.
type Row struct {
	Values     []he.Ciphertext
	Commitment commit.Commitment
}

func (row Row) clone() Row {
	values := make([]he.Ciphertext, len(row.Values))
	for i, value := range row.Values {
		values[i] = value.Clone()
	}
	return Row{Values: values, Commitment: row.Commitment}
}

// TableData is a table schema with its ordered rows.
type TableData struct {
	Schema core.Table
	Rows   []Row
}

func (data *TableData) clone() *TableData {
	rows := make([]Row, len(data.Rows))
	for i, row := range data.Rows {
		rows[i] = row.clone()
	}
	return &TableData{Schema: data.Schema.Clone(), Rows: rows}
}

// Store is the catalog of encrypted tables and their indexes.
type Store struct {
	tables  map[string]*TableData
	indexes *IndexManager
}

func NewStore() *Store {
	return &Store{
		tables:  make(map[string]*TableData),
		indexes: NewIndexManager(),
	}
}

// Indexes returns the index manager of the store.
func (s *Store) Indexes() *IndexManager {
	return s.indexes
}

// CreateTable registers an empty table and an empty index per column.
func (s *Store) CreateTable(schema core.Table) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if _, exists := s.tables[schema.Name]; exists {
		return errors.Wrapf(core.ErrTableAlreadyExists, "%s", schema.Name)
	}

	s.tables[schema.Name] = &TableData{Schema: schema.Clone()}
	s.indexes.CreateIndexes(schema.Name, schema.Columns)
	return nil
}

func (s *Store) Get(name string) (*TableData, error) {
	data, ok := s.tables[name]
	if !ok {
		return nil, errors.Wrapf(core.ErrTableNotFound, "%s", name)
	}
	return data, nil
}

func (s *Store) Exists(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// ListTables returns the table names in lexical order.
func (s *Store) ListTables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Append adds row to the end of the table and points every column index at
// it. keys[i] is the index key of the plaintext value of column i.
func (s *Store) Append(name string, row Row, keys []string) (int, error) {
	data, err := s.Get(name)
	if err != nil {
		return 0, err
	}

	columns := data.Schema.Columns
	if len(row.Values) != len(columns) || len(keys) != len(columns) {
		return 0, errors.Wrapf(core.ErrArityMismatch, "table %s has %d columns, got %d values", name, len(columns), len(row.Values))
	}

	position := len(data.Rows)
	data.Rows = append(data.Rows, row)

	for i, column := range columns {
		if err := s.indexes.Insert(name, column.Name, keys[i], position); err != nil {
			return 0, err
		}
	}

	return position, nil
}

// SetCell replaces the ciphertext at (position, column).
func (s *Store) SetCell(name string, position, column int, value he.Ciphertext) error {
	data, err := s.Get(name)
	if err != nil {
		return err
	}
	if position < 0 || position >= len(data.Rows) {
		return errors.Errorf("row %d out of range for table %s", position, name)
	}
	if column < 0 || column >= len(data.Schema.Columns) {
		return errors.Wrapf(core.ErrColumnNotFound, "column %d of table %s", column, name)
	}

	data.Rows[position].Values[column] = value
	return nil
}

// ReplaceRows swaps the rows of the table. Indexes must be rebuilt by the
// caller afterwards.
func (s *Store) ReplaceRows(name string, rows []Row) error {
	data, err := s.Get(name)
	if err != nil {
		return err
	}

	data.Rows = rows
	return nil
}

// Clone returns a deep copy of every table, every ciphertext and every index.
func (s *Store) Clone() *Store {
	tables := make(map[string]*TableData, len(s.tables))
	for name, data := range s.tables {
		tables[name] = data.clone()
	}
	return &Store{tables: tables, indexes: s.indexes.Clone()}
}

// restore replaces the contents of s with those of snapshot.
func (s *Store) restore(snapshot *Store) {
	s.tables = snapshot.tables
	s.indexes = snapshot.indexes
}
