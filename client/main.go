package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JRI98/clutch/client/config"
	"github.com/JRI98/clutch/client/gateway"
	"github.com/JRI98/clutch/client/session"
	"github.com/JRI98/clutch/client/terminal"
	"github.com/spf13/cobra"
)

var version = "v0.1.0"

type rootOptions struct {
	logFile         string
	pollInterval    time.Duration
	refreshInterval time.Duration
	timeout         time.Duration
}

func main() {
	os.Exit(execute())
}

func execute() int {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "clutch [config]",
		Short: "Terminal client for a chat room",
		Long: `clutch shows the latest messages of a chat room and sends what you type.

Keys:
  Enter    send the message
  Ctrl-R   refresh history
  Ctrl-C   quit`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		Version:      version,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := ""
			if len(args) > 0 {
				configPath = args[0]
			}
			return run(cmd.Context(), opts, configPath)
		},
	}

	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Write JSON logs to this file")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", session.DefaultPollInterval, "Sleep between keyboard polls when idle")
	cmd.Flags().DurationVar(&opts.refreshInterval, "refresh-interval", 0, "Refresh history periodically (0 disables)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", gateway.DefaultTimeout, "Timeout for each request to the chat service")

	return cmd
}

func openLogger(path string) (*slog.Logger, func() error, error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, file.Close, nil
}

func run(ctx context.Context, opts *rootOptions, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logger = logger.With(slog.String("room", cfg.Room), slog.Uint64("user", cfg.User))
	logger.Info("Starting session", slog.String("config", cfg.Source), slog.String("origin", cfg.Origin))

	client, err := gateway.New(gateway.Options{
		Origin:     cfg.Origin,
		Token:      cfg.Token,
		HTTPClient: &http.Client{Timeout: opts.timeout},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}

	input, err := terminal.NewReader(os.Stdin)
	if err != nil {
		return err
	}
	defer input.Close()

	controller := terminal.NewController(os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	chat := session.New(client, input, os.Stdout, session.Options{
		Room:            cfg.Room,
		PollInterval:    opts.pollInterval,
		RefreshInterval: opts.refreshInterval,
		Logger:          logger,
		EnterRaw: func() (io.Closer, error) {
			handle, err := controller.EnterRaw()
			if err != nil {
				return nil, err
			}
			return handle, nil
		},
	})

	if err := chat.Run(ctx); err != nil {
		logger.Error("Session ended with error", slog.Any("err", err))
		return err
	}

	logger.Info("Session ended")
	return nil
}
