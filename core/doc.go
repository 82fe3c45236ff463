// Package core provides core types used throughout ZeroTrustDB.
//
// The package defines fundamental types like Identity, Table, Column,
// Condition and Role, the value normalization rules shared by every layer,
// and the sentinel errors returned by the engine.
//
// # Identity
//
// Identity identifies the author of audit ledger commits:
//
//	identity := core.Identity{
//	    Name:  "ZeroTrustDB",
//	    Email: "engine@zerotrustdb.local",
//	}
//
// # Column Types
//
// Supported column types:
//   - IntType: 64-bit signed integers
//   - TextType: UTF-8 text, mapped to the integer domain by the codec package
//
// # Table Definition
//
//	table := core.Table{
//	    Name: "users",
//	    Columns: []core.Column{
//	        core.IntColumn("user_id"),
//	        core.TextColumn("name"),
//	        core.IntColumn("balance"),
//	    },
//	}
//
// # Conditions
//
// A condition is a single (column, operator, value) triple:
//
//	where := core.Where("balance", core.GreaterOrEqual, 150)
//
// # Roles
//
// Roles form a closed set. Each role carries a fixed capability set:
//   - RoleAdmin: select, insert, update, delete
//   - RoleEditor: select, insert, update
//   - RoleReader: select
package core
