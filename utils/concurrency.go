package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces work submission. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewIntervalLimiter returns a token bucket releasing one token per interval with a
// burst of one, so the n-th Wait returns no earlier than n*interval after the first.
// A non-positive interval disables pacing.
func NewIntervalLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// WorkerPool runs jobs on a bounded number of goroutines. Submission is paced by an
// optional Limiter; pacing happens in the submitting goroutine, so jobs start in
// submission order even though they may finish in any order.
type WorkerPool struct {
	limiter   Limiter
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool with the given concurrency. limiter may be nil.
func NewWorkerPool(maxWorkers int, limiter Limiter) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		limiter:   limiter,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// Submit blocks until the limiter admits the job and a worker slot is free, then runs
// job asynchronously. It returns ctx's error if ctx ends first; job is not run then.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	if wp.limiter != nil {
		if err := wp.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	select {
	case wp.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		job()
	}()
	return nil
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// KeySet is a thread-safe set of natural keys.
type KeySet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains returns true if the key has been added.
func (s *KeySet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[key]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *KeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
