package db

import (
	"bytes"
	"io"
	"testing"

	"github.com/nickyhof/ZeroTrustDB/audit"
	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func setupComponents(t *testing.T) (*Components, *test.Hook) {
	t.Helper()

	key, err := he.GenerateKey(64)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)

	cipher, err := he.New(key)
	require.NoError(t, err)

	scheme, err := commit.NewScheme()
	require.NoError(t, err)

	ledger, err := ps.NewMemoryLedger()
	require.NoError(t, err)
	log, err := audit.NewLog(ledger, "test@zerotrustdb.local")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	hook := test.NewLocal(logger)

	components := NewComponents(cipher, scheme, log, 16, logger)
	t.Cleanup(func() { components.Cache.Close() })
	return components, hook
}

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()
	components, _ := setupComponents(t)
	return NewEngine(components, core.RoleAdmin)
}

func insertTestData(t *testing.T, engine *Engine) {
	t.Helper()

	_, err := engine.CreateTable("users",
		core.IntColumn("id"),
		core.TextColumn("name"),
		core.IntColumn("age"),
		core.IntColumn("balance"),
	)
	require.NoError(t, err)

	for _, row := range [][]any{
		{1, "Alice", 30, 100},
		{2, "Bob", 25, 200},
		{3, "Charlie", 35, 150},
	} {
		_, err := engine.Insert("users", row...)
		require.NoError(t, err)
	}

	_, err = engine.CreateTable("orders",
		core.IntColumn("order_id"),
		core.IntColumn("user_id"),
		core.IntColumn("amount"),
	)
	require.NoError(t, err)

	for _, row := range [][]any{
		{101, 1, 50},
		{102, 2, 150},
		{103, 4, 30},
	} {
		_, err := engine.Insert("orders", row...)
		require.NoError(t, err)
	}
}

func render(result Result) string {
	var buf bytes.Buffer
	result.Render(&buf)
	return buf.String()
}
