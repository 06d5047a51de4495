package history

import (
	"fmt"
	"strings"
	"time"
)

const (
	// WindowSize is how many of the most recent messages are rendered.
	WindowSize = 15

	UnknownSender = "Unknown"

	timestampLayout = "01/02 15:04"
	lineSeparator   = "\r\n"
)

// Message is a single chat message as returned by the gateway.
type Message struct {
	Date string
	From string
	Body string
}

func (m Message) Sender() string {
	if m.From == "" {
		return UnknownSender
	}
	return m.From
}

// Window is the bounded, oldest-first view over the last fetched snapshot.
type Window struct {
	messages []Message
}

// NewWindow keeps the last WindowSize messages of the snapshot in their
// original order. The snapshot is copied so later mutation of messages does
// not leak into the window.
func NewWindow(messages []Message) Window {
	start := 0
	if len(messages) > WindowSize {
		start = len(messages) - WindowSize
	}

	selected := make([]Message, len(messages)-start)
	copy(selected, messages[start:])

	return Window{messages: selected}
}

func (w Window) Messages() []Message {
	out := make([]Message, len(w.messages))
	copy(out, w.messages)
	return out
}

func (w Window) Len() int {
	return len(w.messages)
}

// Format renders one line per message, joined with CRLF for raw-mode output.
func (w Window) Format(loc *time.Location) string {
	lines := make([]string, 0, len(w.messages))
	for _, message := range w.messages {
		lines = append(lines, FormatLine(message, loc))
	}
	return strings.Join(lines, lineSeparator)
}

// FormatWindow renders the last WindowSize messages of a snapshot in loc.
func FormatWindow(messages []Message, loc *time.Location) string {
	return NewWindow(messages).Format(loc)
}

// FormatLine renders "[MM/DD HH:MM] [sender]: body". A date that is not
// RFC3339 is shown verbatim instead of failing the whole render.
func FormatLine(message Message, loc *time.Location) string {
	return fmt.Sprintf("[%s] [%s]: %s", formatTimestamp(message.Date, loc), message.Sender(), flatten(message.Body))
}

func formatTimestamp(date string, loc *time.Location) string {
	parsed, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return date
	}
	if loc == nil {
		loc = time.Local
	}
	return parsed.In(loc).Format(timestampLayout)
}

// flatten keeps a message on a single display line.
func flatten(body string) string {
	if !strings.ContainsAny(body, "\r\n") {
		return body
	}
	body = strings.ReplaceAll(body, "\r\n", " ")
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(body)
}
