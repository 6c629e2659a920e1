package scanner

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsEverySubmittedTask(t *testing.T) {
	pool := NewPool(4)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		})
	}
	wg.Wait()
	pool.Close()

	assert.Equal(t, int32(32), ran.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewPool(workers)

	var active, peak atomic.Int32
	started := make(chan struct{}, 8)
	gate := make(chan struct{})

	// Release the gate once both workers hold a task, so the remaining
	// submits can drain through the bounded queue.
	go func() {
		<-started
		<-started
		close(gate)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			started <- struct{}{}
			<-gate
			active.Add(-1)
		})
	}
	wg.Wait()
	pool.Close()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	pool := NewPool(1)
	pool.Close()
	assert.NotPanics(t, func() { pool.Close() })
	assert.False(t, pool.Submit(func() {}), "submit after close must be refused")
}
