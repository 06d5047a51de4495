package gateway_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JRI98/clutch/client/gateway"
	"github.com/JRI98/clutch/client/history"
	"github.com/JRI98/clutch/server/handlers"
	"github.com/JRI98/clutch/server/relay"
	"github.com/JRI98/clutch/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) string {
	t.Helper()

	credentials, err := relay.ParseCredentials("tok:Erin")
	require.NoError(t, err)

	handler := handlers.NewHandler(services.NewMemoryStore())
	clock := time.Date(2024, 7, 9, 8, 0, 0, 0, time.UTC)
	handler.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	server := httptest.NewServer(relay.New(handler, credentials, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() {
		server.Close()
		_ = handler.Cleanup()
	})
	return server.URL
}

func TestRoundTripThroughRelay(t *testing.T) {
	origin := startRelay(t)
	client, err := gateway.New(gateway.Options{Origin: origin, Token: "tok"})
	require.NoError(t, err)

	ctx := context.Background()
	for _, text := range []string{"first", "second"} {
		require.NoError(t, client.SendMessage(ctx, "room 7", text))
	}

	messages, err := client.FetchRecentMessages(ctx, "room 7")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	lines := history.NewWindow(messages).Format(time.UTC)
	assert.Equal(t, "[07/09 08:01] [Erin]: first\r\n[07/09 08:02] [Erin]: second", lines)
}

func TestRoomNamesSurviveTheRelay(t *testing.T) {
	origin := startRelay(t)
	client, err := gateway.New(gateway.Options{Origin: origin, Token: "tok"})
	require.NoError(t, err)

	ctx := context.Background()
	for _, room := range []string{"50%", "100%25", "a/b", "room 7"} {
		t.Run(room, func(t *testing.T) {
			require.NoError(t, client.SendMessage(ctx, room, "in "+room))

			messages, err := client.FetchRecentMessages(ctx, room)
			require.NoError(t, err)
			require.Len(t, messages, 1)
			assert.Equal(t, "in "+room, messages[0].Body)
		})
	}

	messages, err := client.FetchRecentMessages(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRelayRejectsWrongToken(t *testing.T) {
	origin := startRelay(t)
	client, err := gateway.New(gateway.Options{Origin: origin, Token: "nope"})
	require.NoError(t, err)

	_, err = client.FetchRecentMessages(context.Background(), "room 7")
	var gatewayErr *gateway.Error
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, http.StatusUnauthorized, gatewayErr.Status)
	assert.Contains(t, err.Error(), "Unauthorized")
}
