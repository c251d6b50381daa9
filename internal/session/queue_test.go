package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, c := range "abc" {
		require.True(t, q.Enqueue(KeyChar{Char: c}))
	}

	for _, want := range "abc" {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, KeyChar{Char: want}, e)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_SignalCoalesces(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(KeyAccept{})
	q.Enqueue(KeyAccept{})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}

	select {
	case <-q.Wait():
		t.Fatal("signals must coalesce to one")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestEventQueue_CloseWakesWaiter(t *testing.T) {
	q := newEventQueue()
	done := make(chan struct{})

	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by Close")
	}
	q.Close() // idempotent
}

func TestEventQueue_EnqueueAfterClose(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Pay{})
	q.Close()

	assert.False(t, q.Enqueue(Cancel{}), "enqueue after close should return false")

	e, ok := q.TryDequeue()
	require.True(t, ok, "queued events survive Close")
	assert.Equal(t, Pay{}, e)
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(KeyChar{Char: '0'})
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}
