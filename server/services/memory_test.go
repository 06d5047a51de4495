package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(i int) Message {
	return Message{
		ID:      fmt.Sprintf("id-%d", i),
		Date:    time.Date(2024, 2, 1, 8, 0, i, 0, time.UTC),
		From:    Sender{ID: 1, Name: "dave"},
		Message: fmt.Sprintf("body %d", i),
		Type:    MessageType,
	}
}

// exerciseStore runs the behavior every RoomStore must share.
func exerciseStore(t *testing.T, store RoomStore) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "alpha", testMessage(i)))
	}
	require.NoError(t, store.Append(ctx, "beta", testMessage(99)))

	recent, err := store.Recent(ctx, "alpha", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"id-3", "id-4", "id-5"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})
	assert.Equal(t, testMessage(3), recent[0])

	all, err := store.Recent(ctx, "alpha", 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, err := store.Recent(ctx, "gamma", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, store.Append(ctx, "", testMessage(1)), ErrInvalidRoom)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	exerciseStore(t, store)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "alpha", testMessage(1)))

	recent, err := store.Recent(ctx, "alpha", 10)
	require.NoError(t, err)
	recent[0].Message = "mutated"

	again, err := store.Recent(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Equal(t, "body 1", again[0].Message)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 0, clampLimit(-3))
	assert.Equal(t, 15, clampLimit(15))
	assert.Equal(t, MaxRecent, clampLimit(MaxRecent+1))
}
