// Package db provides the query engine of ZeroTrustDB.
//
// An Engine runs operations for one role against the encrypted tables of an
// instance. Every call is permission checked, audited and serialized with
// the other engines of the same instance.
//
// # Engine Usage
//
//	engine := db.NewEngine(components, core.RoleAdmin)
//	engine.CreateTable("users", core.IntColumn("id"), core.TextColumn("name"))
//	engine.Insert("users", 1, "Alice")
//
//	result, err := engine.Select("users", core.Where("id", core.Equal, 1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display()
//	engine.VerifyResult(result) // true
//
// # Result Types
//
// There are three result types:
//   - QueryResult: returned by Select, Join and Describe
//   - SumResult: returned by AggregateSum
//   - CommitResult: returned by CreateTable, Insert, Update and Delete
//
// Query and sum results carry commitments that VerifyResult, VerifyRow and
// VerifySum recompute. Read results are cached until a write touches one of
// the tables they read.
package db
