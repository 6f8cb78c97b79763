package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/ponyo877/chatrelay/server/usecase"
)

const sqliteDriverName = "sqlite3_with_go_func"

var registerOnce sync.Once

func regex(re, s string) (bool, error) {
	return regexp.MatchString(re, s)
}

// OpenSQLite opens the database file at path with a REGEXP function installed
// and creates the schema if needed.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	registerOnce.Do(func() {
		sql.Register(sqliteDriverName,
			&sqlite3.SQLiteDriver{
				ConnectHook: func(conn *sqlite3.SQLiteConn) error {
					return conn.RegisterFunc("regexp", regex, true)
				},
			})
	})

	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY on concurrent appends.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite %s: %w", path, err)
	}
	if err := migrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS messages (
			id           TEXT PRIMARY KEY,
			room_id      TEXT    NOT NULL,
			username     TEXT    NOT NULL,
			message      TEXT    NOT NULL,
			ts_unix_nano INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages (room_id, ts_unix_nano, id);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return nil
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) usecase.Repository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) AppendMessage(ctx context.Context, message domain.ChatMessage) error {
	query := "INSERT INTO messages (id, room_id, username, message, ts_unix_nano) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, message.ID, message.RoomID, message.Username, message.Text, message.Timestamp.UnixNano()); err != nil {
		return fmt.Errorf("failed to insert message for room %s: %w", message.RoomID, err)
	}
	return nil
}

func (r *SQLiteRepository) FetchHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	query := "SELECT id, username, message, ts_unix_nano FROM messages WHERE room_id = ? ORDER BY ts_unix_nano, id"
	args := []any{roomID}
	if limit > 0 {
		query = `
			SELECT id, username, message, ts_unix_nano FROM (
				SELECT id, username, message, ts_unix_nano FROM messages
				WHERE room_id = ? ORDER BY ts_unix_nano DESC, id DESC LIMIT ?
			) ORDER BY ts_unix_nano, id
		`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for room %s: %w", roomID, err)
	}
	return scanSQLiteMessages(rows, roomID)
}

func (r *SQLiteRepository) SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error) {
	query := "SELECT id, username, message, ts_unix_nano FROM messages WHERE room_id = ? AND message REGEXP ? ORDER BY ts_unix_nano, id"
	rows, err := r.db.QueryContext(ctx, query, roomID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search in room %s for query '%s': %w", roomID, pattern, err)
	}
	return scanSQLiteMessages(rows, roomID)
}

func scanSQLiteMessages(rows *sql.Rows, roomID string) ([]domain.ChatMessage, error) {
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var id, username, text string
		var tsUnixNano int64
		if err := rows.Scan(&id, &username, &text, &tsUnixNano); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, domain.ChatMessage{
			ID:        id,
			RoomID:    roomID,
			Username:  username,
			Text:      text,
			Timestamp: time.Unix(0, tsUnixNano).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over messages for room %s: %w", roomID, err)
	}
	return messages, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
