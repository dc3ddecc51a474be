package client

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite" // pure Go sqlite driver

	"github.com/secret-echo/secret-echo/internal/message"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cached_messages (
	user_id         INTEGER NOT NULL,
	id              TEXT    NOT NULL,
	receiver        TEXT    NOT NULL,
	content         TEXT    NOT NULL,
	created_at      TEXT    NOT NULL,
	sender_id       INTEGER NOT NULL,
	sender_username TEXT    NOT NULL,
	sender_color    TEXT    NOT NULL,
	PRIMARY KEY (user_id, id)
);
`

// Cache is the best-effort durable copy of confirmed messages, keyed by
// user id. It exists to paint the view before the network fetch completes;
// the server remains authoritative.
type Cache struct {
	db *sql.DB
}

func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Load returns the cached history for a user, ascending by creation time.
// An unknown user yields an empty slice.
func (c *Cache) Load(userID uint64) ([]Entry, error) {
	rows, err := c.db.Query(`
		SELECT id, receiver, content, created_at, sender_id, sender_username, sender_color
		FROM cached_messages WHERE user_id = ?
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			v  message.View
			ts string
		)
		if err := rows.Scan(&v.ID, &v.Receiver, &v.Content, &ts,
			&v.Sender.ID, &v.Sender.Username, &v.Sender.AvatarColor); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			v.CreatedAt = t
		}
		entries = append(entries, Entry{View: v})
	}
	return entries, rows.Err()
}

// Save replaces the user's cached rows with the given entries, skipping
// optimistic and failed ones.
func (c *Cache) Save(userID uint64, entries []Entry) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cached_messages WHERE user_id = ?`, userID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO cached_messages
			(user_id, id, receiver, content, created_at, sender_id, sender_username, sender_color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Optimistic || e.Failed {
			continue
		}
		if _, err := stmt.Exec(userID, e.ID, e.Receiver, e.Content,
			e.CreatedAt.Format(time.RFC3339Nano),
			e.Sender.ID, e.Sender.Username, e.Sender.AvatarColor); err != nil {
			return err
		}
	}
	return tx.Commit()
}
