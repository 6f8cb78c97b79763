package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/ponyo877/chatrelay/server/usecase"
)

// OpenPostgres connects a pool to dsn and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			room_id    TEXT        NOT NULL,
			username   TEXT        NOT NULL,
			message    TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at, id);
	`
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return nil
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) usecase.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) AppendMessage(ctx context.Context, message domain.ChatMessage) error {
	query := "INSERT INTO messages (id, room_id, username, message, created_at) VALUES ($1, $2, $3, $4, $5)"
	if _, err := r.pool.Exec(ctx, query, message.ID, message.RoomID, message.Username, message.Text, message.Timestamp.UTC()); err != nil {
		return fmt.Errorf("failed to insert message for room %s: %w", message.RoomID, err)
	}
	return nil
}

func (r *PostgresRepository) FetchHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	query := "SELECT id, username, message, created_at FROM messages WHERE room_id = $1 ORDER BY created_at, id"
	args := []any{roomID}
	if limit > 0 {
		query = `
			SELECT id, username, message, created_at FROM (
				SELECT id, username, message, created_at FROM messages
				WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
			) recent ORDER BY created_at, id
		`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for room %s: %w", roomID, err)
	}
	return scanPostgresMessages(rows, roomID)
}

func (r *PostgresRepository) SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error) {
	query := "SELECT id, username, message, created_at FROM messages WHERE room_id = $1 AND message ~ $2 ORDER BY created_at, id"
	rows, err := r.pool.Query(ctx, query, roomID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search in room %s for query '%s': %w", roomID, pattern, err)
	}
	return scanPostgresMessages(rows, roomID)
}

func scanPostgresMessages(rows pgx.Rows, roomID string) ([]domain.ChatMessage, error) {
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var id, username, text string
		var createdAt time.Time
		if err := rows.Scan(&id, &username, &text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, domain.ChatMessage{
			ID:        id,
			RoomID:    roomID,
			Username:  username,
			Text:      text,
			Timestamp: createdAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over messages for room %s: %w", roomID, err)
	}
	return messages, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
