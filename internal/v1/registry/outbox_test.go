package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_SendReceiveOrder(t *testing.T) {
	out := NewOutbox()
	defer out.Close()

	require.NoError(t, out.Send("a"))
	require.NoError(t, out.Send("b"))
	require.NoError(t, out.Send("c"))

	for _, want := range []string{"a", "b", "c"} {
		got, ok := out.Receive()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestOutbox_SendNeverBlocks(t *testing.T) {
	out := NewOutbox()
	defer out.Close()

	// No receiver; a bounded queue would wedge here.
	for i := 0; i < 10000; i++ {
		require.NoError(t, out.Send("frame"))
	}
	assert.Equal(t, 10000, out.Len())
}

func TestOutbox_CloseDiscardsPending(t *testing.T) {
	out := NewOutbox()

	require.NoError(t, out.Send("pending"))
	out.Close()

	_, ok := out.Receive()
	assert.False(t, ok)
	assert.Equal(t, 0, out.Len())
}

func TestOutbox_SendAfterClose(t *testing.T) {
	out := NewOutbox()
	out.Close()

	err := out.Send("late")
	assert.ErrorIs(t, err, ErrOutboxClosed)
	assert.True(t, out.Closed())
}

func TestOutbox_CloseIsIdempotent(t *testing.T) {
	out := NewOutbox()
	out.Close()
	out.Close()
	assert.True(t, out.Closed())
}

func TestOutbox_CloseUnblocksReceiver(t *testing.T) {
	out := NewOutbox()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := out.Receive()
		assert.False(t, ok)
	}()

	// Give the receiver time to park on the condition variable.
	time.Sleep(20 * time.Millisecond)
	out.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
}

func TestOutbox_ConcurrentSenders(t *testing.T) {
	out := NewOutbox()
	defer out.Close()

	var wg sync.WaitGroup
	const senders = 8
	const perSender = 100

	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				_ = out.Send("frame")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, senders*perSender, out.Len())
}
