package migration

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/autoblock/migrations"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func historyFS(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(migrations.FS, "sqlite")
	require.NoError(t, err)
	return sub
}

// withExtra returns the shipped migrations plus extra files.
func withExtra(t *testing.T, extra fstest.MapFS) fstest.MapFS {
	t.Helper()
	out := fstest.MapFS{}
	shipped := historyFS(t)
	entries, err := fs.ReadDir(shipped, ".")
	require.NoError(t, err)
	for _, e := range entries {
		data, err := fs.ReadFile(shipped, e.Name())
		require.NoError(t, err)
		out[e.Name()] = &fstest.MapFile{Data: data}
	}
	for name, f := range extra {
		out[name] = f
	}
	return out
}

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestShippedMigrations_CreateRunsTable(t *testing.T) {
	db := openDB(t)
	runner := NewRunner(db, historyFS(t), nil)

	applied, err := runner.ApplyMigrations(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, applied, 1)

	assert.Equal(t,
		[]string{"id", "mode", "started_at", "finished_at", "outcome", "window_index", "block_end", "error"},
		columns(t, db, "runs"))

	var index string
	require.NoError(t, db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'runs' AND name = 'idx_runs_started_at'",
	).Scan(&index))

	current, err := runner.GetCurrentVersion()
	require.NoError(t, err)
	latest, err := runner.GetLatestVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, current)

	applied, err = runner.ApplyMigrations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied, "second open is a no-op")
}

func TestShippedMigrations_AreNumberedFromOne(t *testing.T) {
	files, err := NewRunner(nil, historyFS(t), nil).ReadMigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for i, m := range files {
		assert.Equal(t, i+1, m.Version, "gap before %s", m.Name)
		assert.NotEmpty(t, m.Name)
	}
}

func TestApplyMigrations_KeepsRecordedRuns(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	_, err := NewRunner(db, historyFS(t), nil).ApplyMigrations(ctx)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO runs (id, mode, started_at, finished_at, outcome)
		VALUES ('r1', 'run', '2026-10-12T10:00:00Z', '2026-10-12T10:00:01Z', 'started')`)
	require.NoError(t, err)

	upgraded := NewRunner(db, withExtra(t, fstest.MapFS{
		"900_engine.sql": {Data: []byte("ALTER TABLE runs ADD COLUMN engine TEXT NOT NULL DEFAULT '';")},
	}), nil)
	applied, err := upgraded.ApplyMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	var outcome, eng string
	require.NoError(t, db.QueryRow("SELECT outcome, engine FROM runs WHERE id = 'r1'").Scan(&outcome, &eng))
	assert.Equal(t, "started", outcome)
	assert.Empty(t, eng)

	current, err := upgraded.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 900, current)
}

func TestApplyMigrations_FailureKeepsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	shipped := NewRunner(db, historyFS(t), nil)
	_, err := shipped.ApplyMigrations(ctx)
	require.NoError(t, err)
	before, err := shipped.GetCurrentVersion()
	require.NoError(t, err)

	broken := NewRunner(db, withExtra(t, fstest.MapFS{
		"900_broken.sql": {Data: []byte("ALTER TABLE runs ADD COLUMN x TEXT; NOT VALID SQL;")},
	}), nil)
	_, err = broken.ApplyMigrations(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "900")

	after, err := broken.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NotContains(t, columns(t, db, "runs"), "x", "partial migration rolled back")
}

func TestNewerHistorySchemaIsRejected(t *testing.T) {
	db := openDB(t)
	runner := NewRunner(db, historyFS(t), nil)

	latest, err := runner.GetLatestVersion()
	require.NoError(t, err)
	require.NoError(t, runner.SetVersion(latest+1))

	err = runner.ValidateVersion()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upgrade autoblock")

	_, err = runner.ApplyMigrations(context.Background())
	assert.Error(t, err)
}

func TestReadMigrationFiles_Naming(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr bool
	}{
		{"missing separator", fstest.MapFS{"init.sql": {Data: []byte("")}}, true},
		{"non numeric version", fstest.MapFS{"abc_init.sql": {Data: []byte("")}}, true},
		{"version zero", fstest.MapFS{"000_init.sql": {Data: []byte("")}}, true},
		{"duplicate version", fstest.MapFS{
			"001_a.sql": {Data: []byte("")},
			"001_b.sql": {Data: []byte("")},
		}, true},
		{"other files ignored", fstest.MapFS{
			"001_init.sql": {Data: []byte("")},
			"README.md":    {Data: []byte("notes")},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := NewRunner(nil, tt.files, nil).ReadMigrationFiles()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, files, 1)
		})
	}
}
