package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`

func TestOpenFile(t *testing.T) {
	cfg := Config{File: filepath.Join(t.TempDir(), "nested", "test.db")}
	require.True(t, cfg.Enabled())

	db, err := cfg.Open(testSchema)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO kv (k, v) VALUES ('a', 'b')")
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)
}

func TestOpenMemory(t *testing.T) {
	db, err := Config{File: ":memory:"}.Open(testSchema)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM kv").Scan(&count))
	require.Equal(t, 0, count)
}

func TestOpenUnconfigured(t *testing.T) {
	require.False(t, Config{}.Enabled())
	_, err := Config{}.Open(testSchema)
	require.Error(t, err)
}
