// Package op provides the row operations of ZeroTrustDB tables.
//
// The op package sits between the query engine (db/) and the state layer
// (ps/). It is the only place where plaintext values become ciphertexts and
// back.
//
// # DatabaseOp
//
// DatabaseOp binds a store to a cipher and a commitment scheme:
//
//	dbOp := op.NewDatabaseOp(store, cipher, scheme)
//	tableOp, err := dbOp.CreateTable(core.Table{Name: "users", Columns: columns})
//	names := dbOp.TableNames()
//
// # TableOp
//
// TableOp encrypts on the way in and decrypts on the way out:
//
//	record, err := tableOp.Insert(1, "Alice", 30, 100)
//	rows, err := tableOp.Select(core.Where("balance", core.GreaterOrEqual, 150))
//	n, err := tableOp.UpdateWhere(*core.Where("id", core.Equal, 1), map[string]any{"balance": 500})
//	n, err = tableOp.DeleteWhere(*core.Where("age", core.Less, 30))
//	total, err := tableOp.Sum("balance")
//
//	for record, err := range tableOp.Scan() {
//	    // process every decrypted row
//	}
//
// Sum never decrypts individual rows: it adds the ciphertexts and decrypts
// the total once.
//
// # Architecture
//
//	Query Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	State (ps/)
package op
