// Package ps holds the state of a ZeroTrustDB instance.
//
// # Store
//
// Store is the catalog of encrypted tables. Rows hold one ciphertext per
// column and the commitment taken when the row was inserted. Every column has
// an index from plaintext key to the position of the last row inserted with
// that value:
//
//	store := ps.NewStore()
//	store.CreateTable(core.Table{Name: "users", Columns: columns})
//	position, _ := store.Indexes().Lookup("users", "name", core.Key("Alice"))
//
// # Transactions
//
// TransactionManager snapshots the whole store on Begin and swaps the
// snapshot back in on Rollback:
//
//	tm := ps.NewTransactionManager(store)
//	tm.Begin()
//	// ... writes ...
//	tm.Rollback()
//
// # Ledger
//
// Ledger is an append-only record log backed by go-git. Each record is a blob
// committed on its own, so the ledger history is the commit history:
//
//	ledger, err := ps.NewMemoryLedger()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	txn, _ := ledger.Append(data, identity, "insert")
//
// A ledger can be mirrored to any git remote:
//
//	ledger.AddRemote("origin", "https://git.example.com/audit.git")
//	ledger.Push("origin", &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: token})
package ps
