package sqlite

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_create_notes.up.sql":   {Data: []byte(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL);`)},
		"sql/000001_create_notes.down.sql": {Data: []byte(`DROP TABLE notes;`)},
		"sql/000002_add_author.up.sql":     {Data: []byte(`ALTER TABLE notes ADD COLUMN author TEXT;`)},
		"sql/000002_add_author.down.sql":   {Data: []byte(`ALTER TABLE notes DROP COLUMN author;`)},
	}

	db, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	require.NoError(t, RunMigrations(db, fsys, "sql"))

	// Neither statement is idempotent, so a second run only passes when the
	// applied version is remembered.
	require.NoError(t, RunMigrations(db, fsys, "sql"))

	var (
		version int
		dirty   bool
	)
	require.NoError(t, db.QueryRowx(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	assert.Equal(t, 2, version)
	assert.False(t, dirty)

	_, err = db.Exec(`INSERT INTO notes (body, author) VALUES ('hello', 'alice')`)
	assert.NoError(t, err)
}

func TestRunMigrations_MissingDir(t *testing.T) {
	db, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	err = RunMigrations(db, fstest.MapFS{}, "sql")

	assert.Error(t, err)
}
