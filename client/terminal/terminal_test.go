package terminal

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEnterRawRejectsNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	handle, err := NewController(r).EnterRaw()
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrNotTerminal)
}

func TestHandleRestoresOnce(t *testing.T) {
	calls := 0
	handle := newHandle(func() error {
		calls++
		return nil
	})

	require.NoError(t, handle.Close())
	require.NoError(t, handle.Close())
	assert.Equal(t, 1, calls)
}

func TestHandleKeepsRestoreError(t *testing.T) {
	boom := errors.New("boom")
	handle := newHandle(func() error { return boom })

	assert.ErrorIs(t, handle.Close(), boom)
	assert.ErrorIs(t, handle.Close(), boom)
}

func waitForByte(t *testing.T, r *Reader) (byte, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, ok, err := r.PollByte()
		if ok {
			return b, err
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for input")
	return 0, nil
}

func TestReaderPollIsNonBlocking(t *testing.T) {
	pr, pw := io.Pipe()
	r, err := NewReader(pr)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, ok, err := r.PollByte()
		assert.False(t, ok)
		assert.NoError(t, err)
	}

	require.NoError(t, pw.Close())
	_, err = waitForByte(t, r)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, r.Close())
}

func TestReaderDeliversBytesInOrder(t *testing.T) {
	pr, pw := io.Pipe()
	r, err := NewReader(pr)
	require.NoError(t, err)

	go func() {
		_, _ = pw.Write([]byte{'h', 'i', 13})
		_ = pw.Close()
	}()

	var got []byte
	for {
		b, err := waitForByte(t, r)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, []byte{'h', 'i', 13}, got)

	_, ok, err := r.PollByte()
	assert.True(t, ok)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, r.Close())
}

func TestReaderCloseStopsFileReader(t *testing.T) {
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pw.Close()
	defer pr.Close()

	r, err := NewReader(pr)
	require.NoError(t, err)

	_, err = pw.Write([]byte{'x'})
	require.NoError(t, err)
	b, err := waitForByte(t, r)
	require.NoError(t, err)
	assert.Equal(t, byte('x'), b)

	require.NoError(t, r.Close())
}
