package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one recorded plugin lifecycle transition.
type Event struct {
	ID     string
	Event  string
	Plugin string
	At     time.Time
}

// History records plugin lifecycle transitions.
type History struct {
	db *DB
}

// NewHistory creates a history log using the given database.
func NewHistory(db *DB) *History {
	return &History{db: db}
}

// Record appends an event for plugin.
func (h *History) Record(event, plugin string) (Event, error) {
	ev := Event{
		ID:     uuid.New().String(),
		Event:  event,
		Plugin: plugin,
		At:     time.Now().UTC(),
	}
	_, err := h.db.sql.Exec(
		`INSERT INTO plugin_history (id, event, plugin, at) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Event, ev.Plugin, ev.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Event{}, fmt.Errorf("recording %s for %s: %w", event, plugin, err)
	}
	return ev, nil
}

// Recent returns up to limit events, newest first. An empty plugin matches all.
func (h *History) Recent(plugin string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.sql.Query(
		`SELECT id, event, plugin, at FROM plugin_history
		 WHERE ? = '' OR plugin = ?
		 ORDER BY seq DESC LIMIT ?`,
		plugin, plugin, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var at string
		if err := rows.Scan(&ev.ID, &ev.Event, &ev.Plugin, &at); err != nil {
			return nil, err
		}
		ev.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, ev)
	}
	return out, rows.Err()
}
