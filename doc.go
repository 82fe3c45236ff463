// Package ZeroTrustDB is an in-memory table store that keeps every cell
// encrypted under an additively homomorphic cipher.
//
// Rows are committed when inserted, so a holder of a result can check that
// a value and the condition that selected it were produced by the engine.
// SUM aggregates are computed on ciphertexts and only the total is
// decrypted. Every operation is checked against the caller's role and
// recorded in a git-backed audit ledger.
//
// # Quick Start
//
//	instance, _ := ZeroTrustDB.Open(config.Default())
//	defer instance.Close()
//
//	engine := instance.Engine(core.RoleAdmin)
//	engine.CreateTable("users", core.IntColumn("id"), core.TextColumn("name"), core.IntColumn("balance"))
//	engine.Insert("users", 1, "Alice", 100)
//
//	result, _ := engine.Select("users", core.Where("balance", core.GreaterOrEqual, 150))
//	result.Display()
//
//	sum, _ := engine.AggregateSum("users", "balance")
//	engine.VerifySum(sum)
//
// # Roles
//
//   - admin: select, insert, update, delete
//   - editor: select, insert, update
//   - reader: select
//
// # Transactions
//
// BeginTransaction snapshots every table. Rollback restores the most recent
// snapshot and Commit discards them all. Audit records survive a rollback.
package ZeroTrustDB
