package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"mcp-gateway/internal/domain/entity"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE,
	name TEXT,
	subscription_tier TEXT NOT NULL DEFAULT 'free',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	message TEXT NOT NULL,
	response TEXT NOT NULL,
	context TEXT,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_user_id ON chat_messages(user_id);
`

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists interactions into the users/chat_messages tables.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// Writes come from a handful of recorder workers; one connection avoids
	// SQLITE_BUSY and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "sqlite ping failed", goerr.V("path", path))
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return goerr.Wrap(err, "failed to apply sqlite schema")
	}
	return nil
}

func (s *SQLiteStore) SaveInteraction(ctx context.Context, interaction *entity.Interaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	ts := interaction.Timestamp.UTC().Format(sqliteTimeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		interaction.UserID, ts,
	); err != nil {
		return goerr.Wrap(err, "failed to upsert user", goerr.V("user_id", interaction.UserID))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, user_id, message, response, context, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		interaction.ID, interaction.UserID, interaction.Message, interaction.Response, interaction.Context, ts,
	); err != nil {
		return goerr.Wrap(err, "failed to insert chat message", goerr.V("id", interaction.ID))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit interaction", goerr.V("id", interaction.ID))
	}
	return nil
}

// ListInteractions returns the most recent interactions of a user, newest first.
func (s *SQLiteStore) ListInteractions(ctx context.Context, userID string, limit int) ([]*entity.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, context, timestamp FROM chat_messages
		 WHERE user_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "query failed", goerr.V("user_id", userID))
	}
	defer rows.Close()

	var interactions []*entity.Interaction
	for rows.Next() {
		var (
			it       entity.Interaction
			snapshot sql.NullString
			ts       string
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.Message, &it.Response, &snapshot, &ts); err != nil {
			return nil, goerr.Wrap(err, "scan failed")
		}
		it.Context = snapshot.String
		if it.Timestamp, err = time.Parse(sqliteTimeLayout, ts); err != nil {
			return nil, goerr.Wrap(err, "invalid timestamp", goerr.V("id", it.ID), goerr.V("timestamp", ts))
		}
		interactions = append(interactions, &it)
	}

	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "rows iteration error")
	}
	return interactions, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
