package op

import (
	"testing"

	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usersTable = core.Table{
	Name: "users",
	Columns: []core.Column{
		core.IntColumn("id"),
		core.TextColumn("name"),
		core.IntColumn("age"),
		core.IntColumn("balance"),
	},
}

func newDatabaseOp(t *testing.T) *DatabaseOp {
	t.Helper()

	key, err := he.GenerateKey(64)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)

	cipher, err := he.New(key)
	require.NoError(t, err)

	scheme, err := commit.NewScheme()
	require.NoError(t, err)

	return NewDatabaseOp(ps.NewStore(), cipher, scheme)
}

// lookup decrypts the row the column index points at for value.
func lookup(op *TableOp, column string, value any) (Record, bool, error) {
	normalized, err := core.Normalize(value)
	if err != nil {
		return Record{}, false, err
	}
	position, ok := op.Store.Indexes().Lookup(op.Table.Name, column, core.Key(normalized))
	if !ok {
		return Record{}, false, nil
	}
	record, err := op.Row(position)
	return record, err == nil, err
}

func newUsers(t *testing.T) (*DatabaseOp, *TableOp) {
	t.Helper()

	dbOp := newDatabaseOp(t)
	users, err := dbOp.CreateTable(usersTable)
	require.NoError(t, err)

	for _, row := range [][]any{
		{1, "Alice", 30, 100},
		{2, "Bob", 25, 200},
		{3, "Charlie", 35, 150},
	} {
		_, err := users.Insert(row...)
		require.NoError(t, err)
	}
	return dbOp, users
}

func TestInsertAndRow(t *testing.T) {
	dbOp, users := newUsers(t)

	record, err := users.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "Bob", int64(25), int64(200)}, record.Values)
	assert.True(t, dbOp.Scheme.Verify(record.Commitment, nil, int64(2), nil))

	assert.Equal(t, 3, users.Count())
	assert.Equal(t, []string{"users"}, dbOp.TableNames())
}

func TestInsertStoresCiphertext(t *testing.T) {
	dbOp, _ := newUsers(t)

	data, err := dbOp.Store.Get("users")
	require.NoError(t, err)

	for _, row := range data.Rows {
		for _, ct := range row.Values {
			assert.Len(t, ct.Mask, 64)
			assert.Equal(t, 1, ct.Terms)
		}
	}
}

func TestInsertRejectsBadValues(t *testing.T) {
	_, users := newUsers(t)

	_, err := users.Insert(4, "Dave", 40)
	require.ErrorIs(t, err, core.ErrArityMismatch)

	_, err = users.Insert(4, 5, 40, 10)
	require.ErrorIs(t, err, core.ErrValueType)

	_, err = users.Insert(4, "Dave", 40, 1.5)
	require.ErrorIs(t, err, core.ErrValueType)

	assert.Equal(t, 3, users.Count())
}

func TestGetTableMissing(t *testing.T) {
	dbOp := newDatabaseOp(t)

	_, err := dbOp.GetTable("missing")
	require.ErrorIs(t, err, core.ErrTableNotFound)
}

func TestSelect(t *testing.T) {
	_, users := newUsers(t)

	all, err := users.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rich, err := users.Select(core.Where("balance", core.GreaterOrEqual, 150))
	require.NoError(t, err)
	require.Len(t, rich, 2)
	assert.Equal(t, "Bob", rich[0].Values[1])
	assert.Equal(t, "Charlie", rich[1].Values[1])

	named, err := users.Select(core.Where("name", core.Equal, "Alice"))
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, int64(1), named[0].Values[0])

	_, err = users.Select(core.Where("missing", core.Equal, 1))
	require.ErrorIs(t, err, core.ErrColumnNotFound)

	_, err = users.Select(core.Where("age", "!=", 1))
	require.ErrorIs(t, err, core.ErrUnknownOperator)
}

func TestIndexLastWriter(t *testing.T) {
	_, users := newUsers(t)

	_, err := users.Insert(4, "Alice", 41, 10)
	require.NoError(t, err)

	record, ok, err := lookup(users, "name", "Alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(4), record.Values[0])

	_, ok, err = lookup(users, "name", "Zed")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateWhere(t *testing.T) {
	_, users := newUsers(t)

	n, err := users.UpdateWhere(*core.Where("id", core.Equal, 1), map[string]any{"name": "Alicia", "balance": 500})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	record, err := users.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "Alicia", int64(30), int64(500)}, record.Values)

	_, ok, err := lookup(users, "name", "Alice")
	require.NoError(t, err)
	assert.False(t, ok, "index still points at the old value")

	_, ok, err = lookup(users, "name", "Alicia")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = users.UpdateWhere(*core.Where("id", core.Equal, 1), map[string]any{"nope": 1})
	require.ErrorIs(t, err, core.ErrColumnNotFound)

	_, err = users.UpdateWhere(*core.Where("id", core.Equal, 1), map[string]any{"age": "old"})
	require.ErrorIs(t, err, core.ErrValueType)
}

func TestDeleteWhereRebuildsIndexes(t *testing.T) {
	_, users := newUsers(t)

	n, err := users.DeleteWhere(*core.Where("age", core.Less, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, users.Count())

	record, ok, err := lookup(users, "name", "Charlie")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, record.Position)
	assert.Equal(t, "Charlie", record.Values[1])

	_, ok, err = lookup(users, "name", "Bob")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = users.DeleteWhere(*core.Where("age", core.Greater, 100))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSum(t *testing.T) {
	_, users := newUsers(t)

	total, err := users.Sum("balance")
	require.NoError(t, err)
	assert.Equal(t, int64(450), total)

	_, err = users.Sum("name")
	require.ErrorIs(t, err, core.ErrColumnNotNumeric)

	_, err = users.Sum("missing")
	require.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestSumEmptyTable(t *testing.T) {
	dbOp := newDatabaseOp(t)
	users, err := dbOp.CreateTable(usersTable)
	require.NoError(t, err)

	_, err = users.Sum("balance")
	require.ErrorIs(t, err, core.ErrEmptyAggregationTarget)
}

func TestSumNegativeValues(t *testing.T) {
	dbOp := newDatabaseOp(t)
	ledger, err := dbOp.CreateTable(core.Table{Name: "ledger", Columns: []core.Column{core.IntColumn("amount")}})
	require.NoError(t, err)

	for _, amount := range []int{-40, 15, -5} {
		_, err := ledger.Insert(amount)
		require.NoError(t, err)
	}

	total, err := ledger.Sum("amount")
	require.NoError(t, err)
	assert.Equal(t, int64(-30), total)
}

func TestIndexEntriesOrdered(t *testing.T) {
	_, users := newUsers(t)

	entries, err := users.IndexEntries("id")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, i, entry.Position)
	}
	assert.Equal(t, core.Key(int64(1)), entries[0].Key)

	_, err = users.IndexEntries("missing")
	require.ErrorIs(t, err, core.ErrColumnNotFound)
}
