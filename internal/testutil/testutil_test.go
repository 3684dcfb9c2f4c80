package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("run")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())

	assert.Equal(t, "test-run-1", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("run")
	var wg sync.WaitGroup
	seen := make(chan string, 100)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				seen <- gen.Generate()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[string]bool{}
	for id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, 100)
}

func TestFixedIDs(t *testing.T) {
	gen := NewFixedIDs("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestStepClock(t *testing.T) {
	c := NewStepClock(time.Second)
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())

	frozen := NewStepClock(0)
	assert.Equal(t, frozen.Now(), frozen.Now())
}
