package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Settings is a string key/value store. Keys are slash-separated paths
// such as "/plugins/enabled".
type Settings struct {
	db *DB
}

// NewSettings creates a settings store using the given database.
func NewSettings(db *DB) *Settings {
	return &Settings{db: db}
}

// Get returns the value stored under key.
func (s *Settings) Get(key string) (string, bool, error) {
	var value string
	err := s.db.sql.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// GetDefault returns the value under key, or def when it is unset or unreadable.
func (s *Settings) GetDefault(key, def string) string {
	v, ok, err := s.Get(key)
	if err != nil {
		s.db.log.Warn().Err(err).Str("key", key).Msg("falling back to default")
		return def
	}
	if !ok {
		return def
	}
	return v
}

// Set stores value under key, replacing any previous value.
func (s *Settings) Set(key, value string) error {
	if key == "" {
		return errors.New("empty settings key")
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	s.db.log.Debug().Str("key", key).Msg("setting stored")
	return nil
}

// Delete removes key. It reports whether anything was removed.
func (s *Settings) Delete(key string) (bool, error) {
	res, err := s.db.sql.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("deleting setting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Entry is one stored setting.
type Entry struct {
	Key   string
	Value string
}

// List returns every setting whose key starts with prefix, ordered by key.
func (s *Settings) List(prefix string) ([]Entry, error) {
	rows, err := s.db.sql.Query(
		`SELECT key, value FROM settings WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Join builds a settings key from path segments.
func Join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
