package syncqueue

import (
	"context"
	"sync"
	"time"
)

type drainJob struct {
	queue Drainer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDrainJob creates a DrainJob that calls queue.Drain on a ticker. The
// job is idle until Start is called.
func NewDrainJob(queue Drainer) DrainJob {
	return &drainJob{queue: queue}
}

// Start implements DrainJob. It stops any previously running job, then
// launches a background goroutine that drains every interval. If interval
// is zero or negative it defaults to 5 minutes. The goroutine exits when
// ctx is cancelled or Stop is called.
func (j *drainJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				// A reconnect-triggered drain may already hold the
				// single-flight guard; that overlap is expected.
				_, _ = j.queue.Drain(jobCtx)
			}
		}
	}()
}

// Stop implements DrainJob. It cancels the background goroutine's context
// and blocks until the goroutine has fully exited. Safe to call when the
// job is not running (no-op in that case).
func (j *drainJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
