package editor

import (
	"math/rand"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndBackspace(t *testing.T) {
	e := New()
	assert.Equal(t, "h", e.Append('h'))
	assert.Equal(t, "i", e.Append('i'))
	assert.Equal(t, "hi", e.String())

	echo := e.Backspace()
	assert.Equal(t, "h", e.String())
	assert.Equal(t, ansi.CursorBackward(1)+" "+ansi.CursorBackward(1), echo)
}

func TestBackspaceOnEmptyIsIgnored(t *testing.T) {
	e := New()
	for i := 0; i < 5; i++ {
		assert.Equal(t, "", e.Backspace())
	}
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, "", e.String())
}

func TestBackspaceWideRune(t *testing.T) {
	e := New()
	e.Append('世')

	echo := e.Backspace()
	assert.Equal(t, ansi.CursorBackward(2)+"  "+ansi.CursorBackward(2), echo)
	assert.Equal(t, 0, e.Len())
}

func TestBackspaceControlRune(t *testing.T) {
	e := New()
	e.Feed('a')
	assert.Equal(t, "\t", e.Feed('\t'))

	echo := e.Backspace()
	assert.Equal(t, "a", e.String())
	assert.Equal(t, ansi.CursorBackward(1)+" "+ansi.CursorBackward(1), echo)
}

func TestTakeClears(t *testing.T) {
	e := New()
	for _, r := range "hello" {
		e.Append(r)
	}
	e.Backspace()
	e.Append('p')

	assert.Equal(t, "hellp", e.Take())
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, "", e.Take())
}

func TestFeedAssemblesUTF8(t *testing.T) {
	e := New()
	encoded := []byte("é")
	require.Len(t, encoded, 2)

	assert.Equal(t, "", e.Feed(encoded[0]))
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, "é", e.Feed(encoded[1]))
	assert.Equal(t, "é", e.String())
}

func TestFeedInvalidByteIsLatin1(t *testing.T) {
	e := New()
	assert.Equal(t, "", e.Feed(0xC3))
	assert.Equal(t, "Ãa", e.Feed('a'))
	assert.Equal(t, "Ãa", e.String())
}

func TestBackspaceDropsPartialSequence(t *testing.T) {
	e := New()
	e.Append('x')
	e.Feed(0xE4)

	e.Backspace()
	assert.Equal(t, "", e.String())
	assert.Equal(t, "y", e.Feed('y'))
}

func TestSet(t *testing.T) {
	e := New()
	e.Append('a')
	e.Set("retry me")
	assert.Equal(t, "retry me", e.String())
	assert.Equal(t, 8, e.Len())
}

func TestLengthMatchesOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		e := New()
		var model []rune
		appends, removed := 0, 0

		for op := 0; op < 50; op++ {
			if rng.Intn(3) == 0 {
				if len(model) > 0 {
					model = model[:len(model)-1]
					removed++
				}
				e.Backspace()
			} else {
				r := rune('a' + rng.Intn(26))
				model = append(model, r)
				appends++
				e.Append(r)
			}
			require.GreaterOrEqual(t, e.Len(), 0)
			require.Equal(t, appends-removed, e.Len())
		}

		assert.Equal(t, string(model), e.Take())
		assert.Equal(t, 0, e.Len())
	}
}
