package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/JRI98/clutch/client/editor"
	"github.com/JRI98/clutch/client/history"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	DefaultPollInterval = 10 * time.Millisecond

	keyQuit      = 3
	keySend      = 13
	keyRefresh   = 18
	keyBackspace = 127

	prompt  = "> "
	newline = "\r\n"
)

var (
	separator   = " " + strings.Repeat("-", 60) + " "
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type State int

const (
	Idle State = iota
	Rendering
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Gateway interface {
	FetchRecentMessages(ctx context.Context, room string) ([]history.Message, error)
	SendMessage(ctx context.Context, room string, text string) error
}

// Input is a non-blocking byte source. ok is false when nothing is pending.
type Input interface {
	PollByte() (b byte, ok bool, err error)
}

type Options struct {
	Room string

	PollInterval time.Duration
	// RefreshInterval enables periodic history refresh when positive.
	RefreshInterval time.Duration

	// EnterRaw switches the terminal to raw mode; the closer restores it.
	EnterRaw func() (io.Closer, error)

	Location *time.Location
	Logger   *slog.Logger

	Sleep func(time.Duration)
	Now   func() time.Time
}

type Session struct {
	gateway Gateway
	input   Input
	out     *bufio.Writer
	editor  *editor.Editor
	options Options

	state       State
	messages    []history.Message
	status      string
	lastRefresh time.Time
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func New(gateway Gateway, input Input, output io.Writer, options Options) *Session {
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.EnterRaw == nil {
		options.EnterRaw = func() (io.Closer, error) { return nopCloser{}, nil }
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Sleep == nil {
		options.Sleep = time.Sleep
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Session{
		gateway: gateway,
		input:   input,
		out:     bufio.NewWriter(output),
		editor:  editor.New(),
		options: options,
		state:   Idle,
	}
}

func (s *Session) State() State {
	return s.state
}

// Draft returns the in-progress message.
func (s *Session) Draft() string {
	return s.editor.String()
}

// Run drives the session until the operator quits, the input reaches EOF or
// ctx is canceled. Raw mode is held for the whole run and released on every
// return path.
func (s *Session) Run(ctx context.Context) (err error) {
	raw, err := s.options.EnterRaw()
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		if closeErr := raw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := s.refresh(ctx); err != nil {
		return err
	}

	for s.state != Terminated {
		if ctx.Err() != nil {
			s.options.Logger.Debug("Session context done", slog.Any("err", ctx.Err()))
			s.state = Terminated
			break
		}

		if s.refreshDue() {
			if err := s.refresh(ctx); err != nil {
				return err
			}
		}

		b, ok, readErr := s.input.PollByte()
		if !ok {
			s.options.Sleep(s.options.PollInterval)
			continue
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				s.state = Terminated
				break
			}
			s.options.Logger.Debug("Ignoring input read error", slog.Any("err", readErr))
			continue
		}

		if err := s.handleByte(ctx, b); err != nil {
			return err
		}
	}

	if err := s.write(newline); err != nil {
		return err
	}
	return nil
}

func (s *Session) handleByte(ctx context.Context, b byte) error {
	switch b {
	case keyQuit:
		s.state = Terminated
		return nil
	case keySend:
		return s.submit(ctx)
	case keyRefresh:
		return s.refresh(ctx)
	case keyBackspace:
		return s.write(s.editor.Backspace())
	default:
		return s.write(s.editor.Feed(b))
	}
}

func (s *Session) refreshDue() bool {
	if s.options.RefreshInterval <= 0 {
		return false
	}
	return s.options.Now().Sub(s.lastRefresh) >= s.options.RefreshInterval
}

// refresh replaces the window with a new snapshot. A failed fetch keeps the
// previous window and shows the error instead.
func (s *Session) refresh(ctx context.Context) error {
	s.lastRefresh = s.options.Now()

	messages, err := s.gateway.FetchRecentMessages(ctx, s.options.Room)
	if err != nil {
		s.options.Logger.Warn("Could not fetch history", slog.String("room", s.options.Room), slog.Any("err", err))
		s.status = statusLine("refresh", err)
	} else {
		s.options.Logger.Debug("Fetched history", slog.String("room", s.options.Room), slog.Int("messages", len(messages)))
		s.messages = messages
		s.status = ""
	}

	return s.render()
}

func (s *Session) render() error {
	s.state = Rendering

	var screen strings.Builder
	screen.WriteString(ansi.EraseEntireScreen)
	screen.WriteString(ansi.CursorHomePosition)
	screen.WriteString(history.FormatWindow(s.messages, s.options.Location))
	screen.WriteString(newline + separator)
	if s.status != "" {
		screen.WriteString(newline + statusStyle.Render(s.status))
	}
	screen.WriteString(newline + prompt + s.editor.String())

	err := s.write(screen.String())
	s.state = Idle
	return err
}

func (s *Session) submit(ctx context.Context) error {
	text := s.editor.Take()
	if text == "" {
		return s.write("\r" + ansi.EraseScreenBelow + prompt)
	}

	if err := s.gateway.SendMessage(ctx, s.options.Room, text); err != nil {
		s.options.Logger.Warn("Could not send message", slog.String("room", s.options.Room), slog.Any("err", err))
		s.editor.Set(text)
		return s.write("\r" + ansi.EraseScreenBelow + statusStyle.Render(statusLine("send", err)) + newline + prompt + text)
	}

	s.options.Logger.Debug("Sent message", slog.String("room", s.options.Room), slog.Int("length", len(text)))
	return s.write("\r" + ansi.EraseScreenBelow + prompt)
}

func (s *Session) write(text string) error {
	if text == "" {
		return nil
	}
	if _, err := s.out.WriteString(text); err != nil {
		return fmt.Errorf("failed to write to terminal: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("failed to write to terminal: %w", err)
	}
	return nil
}

func statusLine(op string, err error) string {
	message := strings.NewReplacer("\r", " ", "\n", " ").Replace(err.Error())
	return fmt.Sprintf("! %s failed: %s", op, message)
}
