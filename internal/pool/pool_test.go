package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecuteRunsJob(t *testing.T) {
	p := New(4, 16)
	defer p.Shutdown()

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Execute(func() {
		ran.Store(true)
		wg.Done()
	}))

	waitOrTimeout(t, &wg)
	require.True(t, ran.Load())
}

func TestExecuteRejectsWhenFull(t *testing.T) {
	// With the single worker blocked on a running job, the next queued
	// job fills all queueSize slots; confirm the submission after that is
	// rejected rather than blocking.
	p := New(1, 1)
	defer p.Shutdown()

	block := make(chan struct{})
	// Pending drops back to 0 as soon as the single worker pops this
	// job (§4.2: the counter tracks queued jobs, not running ones), so
	// the worker must be kept busy for the next submission to queue up
	// and saturate queueSize.
	require.NoError(t, p.Execute(func() { <-block }))
	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, time.Millisecond)

	require.NoError(t, p.Execute(func() {}))
	require.Eventually(t, func() bool { return p.Pending() == 1 }, time.Second, time.Millisecond)

	err := p.Execute(func() {})
	require.ErrorIs(t, err, ErrFull)

	close(block)
}

func TestPendingBalancesAtQuiescence(t *testing.T) {
	p := New(8, 1000)
	defer p.Shutdown()

	var wg sync.WaitGroup
	const n = 500
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, p.Execute(func() { wg.Done() }))
	}
	waitOrTimeout(t, &wg)

	require.Eventually(t, func() bool {
		return p.Pending() == 0
	}, time.Second, time.Millisecond)
}

func TestPanicInJobDoesNotKillWorker(t *testing.T) {
	p := New(2, 16)
	defer p.Shutdown()

	require.NoError(t, p.Execute(func() { panic("boom") }))

	var wg sync.WaitGroup
	wg.Add(1)
	var ran atomic.Bool
	require.NoError(t, p.Execute(func() {
		ran.Store(true)
		wg.Done()
	}))
	waitOrTimeout(t, &wg)
	require.True(t, ran.Load())
}

func TestStealBatchAndPopRefillsLocalDeque(t *testing.T) {
	inj := &injector{}
	for i := 0; i < 5; i++ {
		inj.push(func() {})
	}

	dst := &deque{}
	job, ok := inj.stealBatchAndPop(dst)
	require.True(t, ok)
	require.NotNil(t, job)

	// Half of the remaining 4 jobs (rounded down) plus the one already
	// popped should leave the injector with 2 and the deque holding the
	// other 2, so both popBack and stealFront have something to find.
	dst.mu.Lock()
	left := len(dst.items)
	dst.mu.Unlock()
	require.Equal(t, 2, left)

	inj.mu.Lock()
	remaining := len(inj.items)
	inj.mu.Unlock()
	require.Equal(t, 2, remaining)

	_, ok = dst.stealFront()
	require.True(t, ok)
}

func TestPoolStealsAcrossWorkersUnderBurst(t *testing.T) {
	// A burst submitted faster than one worker can drain forces the
	// shared injector to back up, so idle workers must steal batches
	// from it (and, transitively, from each other's local deques) for
	// every job to complete.
	p := New(4, 2000)
	defer p.Shutdown()

	var wg sync.WaitGroup
	const n = 1000
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, p.Execute(func() { wg.Done() }))
	}
	waitOrTimeout(t, &wg)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for jobs to run")
	}
}
