package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// Editor holds the in-progress outgoing message. Every mutating method
// returns the bytes that must be written to the terminal so the screen
// matches the buffer; raw mode means nothing is echoed for us.
type Editor struct {
	runes   []rune
	pending []byte
}

func New() *Editor {
	return &Editor{}
}

// Feed accepts one raw input byte. Multi-byte UTF-8 sequences are held back
// until complete. A byte that can never start a valid sequence is inserted
// as the Latin-1 character of the same value.
func (e *Editor) Feed(b byte) string {
	e.pending = append(e.pending, b)

	var echo strings.Builder
	for len(e.pending) > 0 && utf8.FullRune(e.pending) {
		r, size := utf8.DecodeRune(e.pending)
		if r == utf8.RuneError && size == 1 {
			r = rune(e.pending[0])
		}
		e.pending = e.pending[size:]
		echo.WriteString(e.Append(r))
	}
	return echo.String()
}

func (e *Editor) Append(r rune) string {
	e.runes = append(e.runes, r)
	return string(r)
}

// Backspace removes the last rune. On an empty buffer it is a no-op and
// returns nothing, so the cursor never walks into the prompt.
func (e *Editor) Backspace() string {
	e.pending = e.pending[:0]

	if len(e.runes) == 0 {
		return ""
	}

	last := e.runes[len(e.runes)-1]
	e.runes = e.runes[:len(e.runes)-1]

	width := runewidth.RuneWidth(last)
	if unicode.IsControl(last) {
		width = 1
	}
	if width == 0 {
		return ""
	}
	return ansi.CursorBackward(width) + strings.Repeat(" ", width) + ansi.CursorBackward(width)
}

// Take returns the buffer contents and resets the editor.
func (e *Editor) Take() string {
	text := string(e.runes)
	e.runes = e.runes[:0]
	e.pending = e.pending[:0]
	return text
}

// Set replaces the buffer, used to restore text after a failed send.
func (e *Editor) Set(text string) {
	e.runes = append(e.runes[:0], []rune(text)...)
	e.pending = e.pending[:0]
}

func (e *Editor) String() string {
	return string(e.runes)
}

func (e *Editor) Len() int {
	return len(e.runes)
}
