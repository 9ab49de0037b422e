package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Job is a function that represents a background job
type Job func(ctx context.Context) error

// WorkerPool runs submitted jobs on a fixed number of goroutines. With a
// single worker, jobs run in submission order.
type WorkerPool struct {
	name      string
	jobQueue  chan Job
	wg        sync.WaitGroup
	isClosing atomic.Bool
	closeOnce sync.Once
}

func NewWorkerPool(name string, size, queueSize int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	wp := &WorkerPool{
		name:     name,
		jobQueue: make(chan Job, queueSize),
	}

	// Start the workers
	for range size {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		if err := job(context.Background()); err != nil {
			log.Warn().Err(err).Str("pool", wp.name).Msg("worker job failed")
		}
	}
}

// Submit enqueues a job without blocking. It reports false when the job was
// dropped because the pool is shutting down or the queue is full.
func (wp *WorkerPool) Submit(j Job) (accepted bool) {
	if wp.isClosing.Load() {
		log.Warn().Str("pool", wp.name).Msg("job submitted during shutdown, dropping")
		return false
	}
	defer func() {
		// Shutdown may close the queue between the check above and the send.
		if recover() != nil {
			accepted = false
		}
	}()
	select {
	case wp.jobQueue <- j:
		return true
	default:
		log.Warn().Str("pool", wp.name).Msg("job queue full, dropping job")
		return false
	}
}

// Shutdown closes the queue and waits for workers to finish queued jobs.
func (wp *WorkerPool) Shutdown() {
	wp.closeOnce.Do(func() {
		wp.isClosing.Store(true)
		close(wp.jobQueue)
	})
	wp.wg.Wait()
}
