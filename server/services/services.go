package services

import (
	"context"
	"errors"
	"time"
)

const (
	MaxRecent   = 1000
	MessageType = "message"
)

var ErrInvalidRoom = errors.New("invalid room")

type Sender struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Message is a stored room message, serialized the way HipChat v2 history
// items are.
type Message struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	From    Sender    `json:"from"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
}

type RoomStore interface {
	Append(ctx context.Context, room string, message Message) error
	// Recent returns at most limit messages, oldest first.
	Recent(ctx context.Context, room string, limit int) ([]Message, error)
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > MaxRecent {
		return MaxRecent
	}
	return limit
}
