package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	t.Run("serializes holders of one key", func(t *testing.T) {
		t.Parallel()

		var km keyedMutex
		counter := 0

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := km.lock("k")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, counter)
	})

	t.Run("releases entries when unused", func(t *testing.T) {
		t.Parallel()

		var km keyedMutex

		unlockA := km.lock("a")
		unlockB := km.lock("b")
		unlockA()
		unlockB()

		km.mu.Lock()
		defer km.mu.Unlock()
		assert.Empty(t, km.locks)
	})
}
