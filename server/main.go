package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/JRI98/clutch/server/handlers"
	"github.com/JRI98/clutch/server/relay"
	"github.com/JRI98/clutch/server/services"
)

func openStore() (services.RoomStore, error) {
	switch kind := os.Getenv("RELAY_STORE"); kind {
	case "", "memory":
		return services.NewMemoryStore(), nil
	case "sqlite":
		databasePath := os.Getenv("RELAY_DB")
		if databasePath == "" {
			databasePath = "relay.db"
		}
		return services.NewSQLiteStore(databasePath)
	case "nats":
		return services.NewNATSStore()
	default:
		return nil, fmt.Errorf("unknown RELAY_STORE %q", kind)
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	credentials, err := relay.ParseCredentials(os.Getenv("RELAY_TOKENS"))
	if err != nil {
		slog.Error("Could not read RELAY_TOKENS", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := openStore()
	if err != nil {
		slog.Error("Could not open room store", slog.Any("err", err))
		os.Exit(1)
	}

	handler := handlers.NewHandler(store)
	defer func() {
		if err := handler.Cleanup(); err != nil {
			slog.Error("Could not close room store", slog.Any("err", err))
		}
	}()

	e := relay.New(handler, credentials, slog.Default())

	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}

		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			slog.Error("Server start error", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", slog.Any("err", err))
	} else {
		slog.Info("Server successfully shutdown")
	}
}
