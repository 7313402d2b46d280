package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_Frozen(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	clock := NewFixedClock(at)

	assert.Equal(t, at, clock.Now())
	assert.Equal(t, at, clock.Now(), "clock must not advance on its own")
}

func TestFixedClock_SetAndAdvance(t *testing.T) {
	clock := NewFixedDate(2026, 10, 16, time.UTC)
	assert.Equal(t, 12, clock.Now().Hour())

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 17, clock.Now().Day())

	clock.Set(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2027, clock.Now().Year())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("call")
	assert.Equal(t, "call-0001", ids.Generate())
	assert.Equal(t, "call-0002", ids.Generate())

	ids.Reset()
	assert.Equal(t, "call-0001", ids.Generate())

	assert.Equal(t, "test-0001", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	ids := NewSequentialIDs("x")
	const numGoroutines = 50

	seen := sync.Map{}
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen.Store(ids.Generate(), true)
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, numGoroutines, count, "every ID must be unique")
}
