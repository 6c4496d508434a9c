package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPipeDeliversInOrder verifies frames reach the other end unchanged
// and in send order.
func TestPipeDeliversInOrder(t *testing.T) {
	a, b := Pipe()
	var got []string
	b.SetReceiver(func(f []byte) { got = append(got, string(f)) })

	for _, s := range []string{"one", "two", "three"} {
		require.NoError(t, a.Send([]byte(s)))
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

// TestPipeCopiesFrames verifies the receiver does not alias the sender's
// buffer.
func TestPipeCopiesFrames(t *testing.T) {
	a, b := Pipe()
	var got []byte
	b.SetReceiver(func(f []byte) { got = f })

	buf := []byte("abc")
	require.NoError(t, a.Send(buf))
	buf[0] = 'z'
	assert.Equal(t, "abc", string(got))
}

// TestPipeClose verifies both ends stop after either closes.
func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	select {
	case <-a.Paired():
	default:
		t.Fatal("pipe should start paired")
	}

	require.NoError(t, b.Close())
	assert.ErrorIs(t, a.Send([]byte("x")), ErrClosed)
	assert.ErrorIs(t, b.Send([]byte("x")), ErrClosed)
	select {
	case <-a.Done():
	default:
		t.Fatal("done should be closed")
	}
	require.NoError(t, a.Close())
}
