package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLockerSerializesSameKey(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := NewMemLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "guild/user")
			assert.NoError(err)
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(50, counter)
	assert.Equal(0, l.Len())
}

func TestMemLockerIndependentKeys(t *testing.T) {
	ctx := context.Background()
	l := NewMemLocker()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(ctx, "b")
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestMemLockerContextCancel(t *testing.T) {
	assert := assert.New(t)
	l := NewMemLocker()

	unlock, err := l.Lock(context.Background(), "k")
	assert.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(0, l.Len())
}
