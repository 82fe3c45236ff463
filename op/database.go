package op

import (
	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/ps"
)

// DatabaseOp binds a store to the cipher and commitment scheme its rows are
// sealed with.
type DatabaseOp struct {
	Store  *ps.Store
	Cipher *he.Cipher
	Scheme *commit.Scheme
}

func NewDatabaseOp(store *ps.Store, cipher *he.Cipher, scheme *commit.Scheme) *DatabaseOp {
	return &DatabaseOp{
		Store:  store,
		Cipher: cipher,
		Scheme: scheme,
	}
}

func (op *DatabaseOp) CreateTable(table core.Table) (*TableOp, error) {
	if err := op.Store.CreateTable(table); err != nil {
		return nil, err
	}
	return op.table(table), nil
}

func (op *DatabaseOp) GetTable(name string) (*TableOp, error) {
	data, err := op.Store.Get(name)
	if err != nil {
		return nil, err
	}
	return op.table(data.Schema), nil
}

func (op *DatabaseOp) TableNames() []string {
	return op.Store.ListTables()
}

func (op *DatabaseOp) table(table core.Table) *TableOp {
	return &TableOp{
		Table:  table,
		Store:  op.Store,
		Cipher: op.Cipher,
		Scheme: op.Scheme,
	}
}
