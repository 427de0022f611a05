package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/soyeahso/eina/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(Memory, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")
	db, err := Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	require.NoError(t, NewSettings(db).Set("/a", "1"))
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())

	db, err = Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer db.Close()
	v, ok, err := NewSettings(db).Get("/a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	require.NoError(t, db.migrate())

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
	assert.Equal(t, migrations[len(migrations)-1].Version, db.schemaVersion())
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"settings", "plugin_history"} {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Settings tests ---

func TestSettings_GetMissing(t *testing.T) {
	s := NewSettings(testDB(t))

	v, ok, err := s.Get("/plugins/enabled")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, "dflt", s.GetDefault("/plugins/enabled", "dflt"))
}

func TestSettings_SetOverwrite(t *testing.T) {
	s := NewSettings(testDB(t))

	require.NoError(t, s.Set("/plugins/enabled", "lomo"))
	require.NoError(t, s.Set("/plugins/enabled", "lomo,dock"))

	v, ok, err := s.Get("/plugins/enabled")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "lomo,dock", v)
	assert.Equal(t, "lomo,dock", s.GetDefault("/plugins/enabled", ""))
}

func TestSettings_EmptyValue(t *testing.T) {
	s := NewSettings(testDB(t))

	require.NoError(t, s.Set("/plugins/enabled", ""))
	v, ok, err := s.Get("/plugins/enabled")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)

	assert.Error(t, s.Set("", "x"))
}

func TestSettings_Delete(t *testing.T) {
	s := NewSettings(testDB(t))
	require.NoError(t, s.Set("/lomo/address", "music.lan:6600"))

	removed, err := s.Delete("/lomo/address")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete("/lomo/address")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSettings_List(t *testing.T) {
	s := NewSettings(testDB(t))
	require.NoError(t, s.Set("/lomo/address", "a"))
	require.NoError(t, s.Set("/plugins/enabled", "b"))
	require.NoError(t, s.Set("/lomo/password", "c"))
	require.NoError(t, s.Set("/lomography", "d"))

	entries, err := s.List("/lomo/")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Key: "/lomo/address", Value: "a"},
		{Key: "/lomo/password", Value: "c"},
	}, entries)

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSettings_List_NonASCIIPrefix(t *testing.T) {
	s := NewSettings(testDB(t))
	require.NoError(t, s.Set("/dock/élan/size", "48"))
	require.NoError(t, s.Set("/dock/élan/pos", "bottom"))
	require.NoError(t, s.Set("/dock/élanx", "no"))
	require.NoError(t, s.Set("/dock/ela/size", "no"))

	entries, err := s.List("/dock/élan/")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Key: "/dock/élan/pos", Value: "bottom"},
		{Key: "/dock/élan/size", Value: "48"},
	}, entries)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/plugins/enabled", Join("plugins", "enabled"))
	assert.Equal(t, "/lomo/address", Join("/lomo/", "/address"))
	assert.Equal(t, "/", Join())
	assert.Equal(t, "/a", Join("", "a", ""))
}

// --- History tests ---

func TestHistory_RecordAndRecent(t *testing.T) {
	h := NewHistory(testDB(t))

	first, err := h.Record("plugin-init", "settings")
	require.NoError(t, err)
	_, err = uuid.Parse(first.ID)
	require.NoError(t, err)

	_, err = h.Record("plugin-init", "lomo")
	require.NoError(t, err)
	_, err = h.Record("plugin-fini", "lomo")
	require.NoError(t, err)

	all, err := h.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "plugin-fini", all[0].Event)
	assert.Equal(t, "settings", all[2].Plugin)
	assert.Equal(t, first.ID, all[2].ID)
	assert.False(t, all[2].At.IsZero())

	lomo, err := h.Recent("lomo", 10)
	require.NoError(t, err)
	assert.Len(t, lomo, 2)

	limited, err := h.Recent("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
