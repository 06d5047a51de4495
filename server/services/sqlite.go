package services

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"slices"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var ddl string

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(databasePath string) (*SQLiteStore, error) {
	ctx := context.Background()

	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, room string, message Message) error {
	if room == "" {
		return ErrInvalidRoom
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (room, message_id, created_at, sender_id, sender_name, content) VALUES (?, ?, ?, ?, ?, ?)`,
		room,
		message.ID,
		message.Date.UTC().Format(time.RFC3339Nano),
		message.From.ID,
		message.From.Name,
		message.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, room string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, created_at, sender_id, sender_name, content FROM messages WHERE room = ? ORDER BY sequence_number DESC LIMIT ?`,
		room,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var message Message
		var createdAt string
		if err := rows.Scan(&message.ID, &createdAt, &message.From.ID, &message.From.Name, &message.Message); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		message.Date, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message date: %w", err)
		}
		message.Type = MessageType

		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
