package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/jitter"
	"github.com/jiftechnify/upix-backend/pkg/logger"
)

const (
	queueSize    = 64
	maxAttempts  = 3
	baseBackoff  = 200 * time.Millisecond
	maxBackoff   = 2 * time.Second
	writeTimeout = 3 * time.Second
)

type job struct {
	key  string
	data []byte
}

// Writer populates the response cache in the background, decoupled from the
// request that produced the response. A full queue or a failed write never
// reaches the client; both are logged and dropped.
type Writer struct {
	cacheRepo usecase.ResponseCacheRepository
	logger    logger.Logger
	jobs      chan job
	stop      chan struct{}
	wg        sync.WaitGroup
}

func NewWriter(cacheRepo usecase.ResponseCacheRepository, logger logger.Logger) *Writer {
	return &Writer{
		cacheRepo: cacheRepo,
		logger:    logger,
		jobs:      make(chan job, queueSize),
		stop:      make(chan struct{}),
	}
}

func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Stop drains outstanding jobs and waits for the worker to exit.
func (w *Writer) Stop() {
	close(w.stop)
	w.wg.Wait()
}

// Enqueue schedules a cache write. Never blocks: when the queue is full the
// job is dropped, which only costs a recomputation on the next request.
func (w *Writer) Enqueue(key string, data []byte) {
	select {
	case w.jobs <- job{key: key, data: data}:
	default:
		w.logger.Warnf("response cache queue full, dropping write for %s", key)
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case j := <-w.jobs:
			w.process(ctx, j)
		case <-w.stop:
			w.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain processes whatever is still queued at shutdown.
func (w *Writer) drain(ctx context.Context) {
	for {
		select {
		case j := <-w.jobs:
			w.process(ctx, j)
		default:
			return
		}
	}
}

// process writes one cached response, retrying transient failures with
// jittered exponential backoff.
func (w *Writer) process(ctx context.Context, j job) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		lastErr = w.cacheRepo.SetResponse(writeCtx, j.key, j.data)
		cancel()

		if lastErr == nil {
			w.logger.Debugf("cached response: %s", j.key)
			return
		}

		if attempt < maxAttempts-1 {
			select {
			case <-time.After(jitter.ExponentialBackoff(baseBackoff, maxBackoff, attempt, jitter.DefaultJitter)):
			case <-ctx.Done():
				return
			}
		}
	}

	w.logger.Warnf("failed to cache response for %s after %d attempts: %v", j.key, maxAttempts, lastErr)
}
