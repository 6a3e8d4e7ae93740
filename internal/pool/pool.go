// Package pool implements the work-stealing thread pool of §4.2: a
// shared injector queue, one local deque per worker, and steal-on-idle
// fallback, translated from thread_pool.rs's crossbeam_deque-based
// design. Go's standard library has no lock-free deque, and nothing in
// the retrieved corpus wires one in, so the local deques and the
// injector are plain mutex-guarded slices; §4.2 only requires
// work-stealing behavior, not a specific lock-free implementation.
package pool

import (
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/metrics"
)

// Job is a unit of work submitted to the pool.
type Job func()

// ErrFull is returned by Execute when the pool's pending-work counter
// has reached queue_size (§4.2's admission-control invariant).
var ErrFull = errors.New("pool: queue full")

// parker is a counting-token wakeup gate, built on sync.Mutex/sync.Cond
// rather than a raw condition variable so tokens issued before a
// worker calls wait are never lost (translated from thread_pool.rs's
// Parker).
type parker struct {
	mu        sync.Mutex
	cond      *sync.Cond
	tokens    int
	maxTokens int
}

func newParker(maxTokens int) *parker {
	p := &parker{maxTokens: maxTokens}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *parker) wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.tokens == 0 {
		p.cond.Wait()
	}
	p.tokens--
}

func (p *parker) notifyOne() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tokens < p.maxTokens {
		p.tokens++
		p.cond.Signal()
	}
}

// deque is a single worker's local FIFO-ish work queue: refilled by its
// owner via a batch steal from the injector, popped from the back by
// its owner, and stolen from the front by other workers.
type deque struct {
	mu    sync.Mutex
	items []Job
}

// pushBackBatch appends jobs in order, used when a worker steals a
// batch from the shared injector and keeps the remainder locally.
func (d *deque) pushBackBatch(jobs []Job) {
	if len(jobs) == 0 {
		return
	}
	d.mu.Lock()
	d.items = append(d.items, jobs...)
	d.mu.Unlock()
}

func (d *deque) popBack() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil, false
	}
	j := d.items[n-1]
	d.items = d.items[:n-1]
	return j, true
}

func (d *deque) stealFront() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, false
	}
	j := d.items[0]
	d.items = d.items[1:]
	return j, true
}

// injector is the shared queue newly submitted jobs land on.
type injector struct {
	mu    sync.Mutex
	items []Job
}

func (inj *injector) push(j Job) {
	inj.mu.Lock()
	inj.items = append(inj.items, j)
	inj.mu.Unlock()
}

// stealBatchAndPop moves roughly half of the injector's queued jobs
// (at least one, at most all of it) into dst, and returns the first of
// them, mirroring thread_pool.rs's
// `injector.steal_batch_and_pop(&worker)`: a single injector visit
// refills a worker's local deque so peer workers can then steal from
// that deque's front instead of contending on the shared injector.
func (inj *injector) stealBatchAndPop(dst *deque) (Job, bool) {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if len(inj.items) == 0 {
		return nil, false
	}
	batch := len(inj.items)/2 + 1
	if batch > len(inj.items) {
		batch = len(inj.items)
	}
	job := inj.items[0]
	rest := inj.items[1:batch]
	inj.items = inj.items[batch:]
	dst.pushBackBatch(rest)
	return job, true
}

// Pool is a fixed-size work-stealing thread pool with a bounded
// pending-job counter as its sole backpressure signal (§4.2).
type Pool struct {
	injector  *injector
	locals    []*deque
	parker    *parker
	pending   atomic.Int64
	queueSize int
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New starts size worker goroutines sharing a pool admitting at most
// queueSize pending jobs at once.
func New(size, queueSize int) *Pool {
	p := &Pool{
		injector:  &injector{},
		locals:    make([]*deque, size),
		parker:    newParker(size),
		queueSize: queueSize,
		stop:      make(chan struct{}),
	}
	for i := range p.locals {
		p.locals[i] = &deque{}
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	return p
}

// Execute submits f for execution. It returns ErrFull without running f
// when the pool already has queueSize jobs pending, matching §4.2's
// admission control (checked-then-incremented, not compare-and-swap:
// a caller may occasionally be admitted slightly over queueSize under
// race, which §4.2 treats as acceptable for a soft limit).
func (p *Pool) Execute(f Job) error {
	if p.pending.Load() >= int64(p.queueSize) {
		return ErrFull
	}
	p.pending.Add(1)
	metrics.PoolPending.Set(float64(p.pending.Load()))
	p.injector.push(f)
	p.parker.notifyOne()
	return nil
}

// Pending returns the current count of jobs submitted but not yet
// picked up by a worker (a running job is no longer counted), for
// metrics and tests.
func (p *Pool) Pending() int64 { return p.pending.Load() }

// Shutdown stops accepting new wakeups and waits for worker goroutines
// to notice the stop signal and return. Jobs already popped finish;
// jobs still queued are abandoned.
func (p *Pool) Shutdown() {
	close(p.stop)
	for i := 0; i < len(p.locals); i++ {
		p.parker.notifyOne()
	}
	p.wg.Wait()
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	local := p.locals[id]

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		job, ok := local.popBack()
		if !ok {
			job, ok = p.steal(id)
		}

		if ok {
			p.pending.Add(-1)
			metrics.PoolPending.Set(float64(p.pending.Load()))
			p.runJob(job)
			continue
		}

		if p.spinWait() {
			continue
		}

		select {
		case <-p.stop:
			return
		default:
			p.parker.wait()
		}
	}
}

// steal tries to refill the calling worker's own deque with a batch
// from the shared injector first, then falls back to stealing a single
// job from the front of every other worker's local deque, mirroring
// thread_pool.rs's steal_batch_and_pop fallback chain.
func (p *Pool) steal(id int) (Job, bool) {
	if job, ok := p.injector.stealBatchAndPop(p.locals[id]); ok {
		return job, true
	}
	for i, local := range p.locals {
		if i == id {
			continue
		}
		if job, ok := local.stealFront(); ok {
			return job, true
		}
	}
	return nil, false
}

// spinWait busy-spins briefly before parking, so a job that lands
// immediately after the last steal attempt doesn't force a full
// park/wake round trip.
func (p *Pool) spinWait() bool {
	for i := 0; i < 64; i++ {
		if p.pending.Load() > 0 {
			return true
		}
	}
	return false
}

// runJob executes job, containing any panic so one bad handler never
// takes down a worker goroutine (§4.2's panic-containment invariant).
func (p *Pool) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("pool worker recovered from panic")
		}
	}()
	job()
}
