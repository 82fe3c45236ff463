package core

import (
	"fmt"

	"github.com/pkg/errors"
)

type ColumnType int

const (
	IntType ColumnType = iota
	TextType
)

func (t ColumnType) String() string {
	switch t {
	case IntType:
		return "INT"
	case TextType:
		return "TEXT"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

func IntColumn(name string) Column {
	return Column{Name: name, Type: IntType}
}

func TextColumn(name string) Column {
	return Column{Name: name, Type: TextType}
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Validate checks that the table has a name, at least one column and no
// duplicate column names.
func (t Table) Validate() error {
	if t.Name == "" {
		return errors.Wrap(ErrInvalidSchema, "table name is empty")
	}
	if len(t.Columns) == 0 {
		return errors.Wrapf(ErrInvalidSchema, "table %s has no columns", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return errors.Wrapf(ErrInvalidSchema, "table %s has an unnamed column", t.Name)
		}
		if seen[col.Name] {
			return errors.Wrapf(ErrInvalidSchema, "table %s has duplicate column %s", t.Name, col.Name)
		}
		if col.Type != IntType && col.Type != TextType {
			return errors.Wrapf(ErrInvalidSchema, "column %s.%s has unknown type %d", t.Name, col.Name, col.Type)
		}
		seen[col.Name] = true
	}

	return nil
}

// ColumnIndex returns the position of the named column.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, col := range t.Columns {
		if col.Name == name {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrColumnNotFound, "%s.%s", t.Name, name)
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Clone returns a copy that shares no memory with t.
func (t Table) Clone() Table {
	columns := make([]Column, len(t.Columns))
	copy(columns, t.Columns)
	return Table{Name: t.Name, Columns: columns}
}
