package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create settings",
		SQL: `
			CREATE TABLE settings (
				key         TEXT PRIMARY KEY,
				value       TEXT NOT NULL,
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "create plugin history",
		SQL: `
			CREATE TABLE plugin_history (
				seq         INTEGER PRIMARY KEY AUTOINCREMENT,
				id          TEXT NOT NULL UNIQUE,
				event       TEXT NOT NULL,
				plugin      TEXT NOT NULL,
				at          TEXT NOT NULL
			);

			CREATE INDEX idx_plugin_history_plugin ON plugin_history (plugin, seq);
		`,
	},
}
