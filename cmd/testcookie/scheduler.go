package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"testcookie"
)

type TaskResult struct {
	URL    string
	Status int
	Bytes  int
	Solved bool
	Error  error
}

type Scheduler struct {
	workers      []*Worker
	workChan     chan string
	resultsChan  chan TaskResult
	wg           sync.WaitGroup
	proxyManager *ProxyManager
	logger       testcookie.Logger
	staggerDelay time.Duration
	cancel       context.CancelFunc
}

func NewScheduler(workerCount int, proxyManager *ProxyManager, staggerDelay time.Duration, logger testcookie.Logger) (*Scheduler, error) {
	s := &Scheduler{
		workers:      make([]*Worker, workerCount),
		workChan:     make(chan string, workerCount*2),
		resultsChan:  make(chan TaskResult, workerCount*2),
		proxyManager: proxyManager,
		logger:       logger,
		staggerDelay: staggerDelay,
	}

	for i := 0; i < workerCount; i++ {
		worker, err := s.createWorker()
		if err != nil {
			return nil, err
		}
		s.workers[i] = worker
	}

	return s, nil
}

func generateWorkerID() string {
	return uuid.New().String()[:8]
}

func (s *Scheduler) createWorker() (*Worker, error) {
	id := generateWorkerID()
	workerLog := &workerLogger{id: id, base: s.logger}

	worker := &Worker{id: id, proxyManager: s.proxyManager, logger: workerLog}
	if err := worker.connect(); err != nil {
		return nil, err
	}
	return worker, nil
}

// workerLogger wraps a logger with worker ID prefix.
type workerLogger struct {
	id   string
	base testcookie.Logger
}

func (w *workerLogger) Log(format string, args ...any) {
	w.base.Log("[%s] "+format, append([]any{w.id}, args...)...)
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for i, worker := range s.workers {
		s.wg.Add(1)
		go s.runWorker(ctx, worker)

		if s.staggerDelay > 0 && i < len(s.workers)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.staggerDelay):
			}
		}
	}
}

const maxFetchRetries = 3

func (s *Scheduler) runWorker(ctx context.Context, worker *Worker) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case rawURL, ok := <-s.workChan:
			if !ok {
				return
			}

			result := s.fetchWithRetry(ctx, worker, rawURL)
			select {
			case s.resultsChan <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// fetchWithRetry retries transient transport failures on a fresh proxy.
// Challenge resolution failures are final; a new proxy will not fix a broken
// page or routine.
func (s *Scheduler) fetchWithRetry(ctx context.Context, worker *Worker, rawURL string) TaskResult {
	var result TaskResult
	for attempt := 0; attempt < maxFetchRetries; attempt++ {
		if attempt > 0 {
			worker.rotateProxy()
		}

		worker.logger.Log("Fetching: %s", rawURL)
		result = worker.Fetch(ctx, rawURL)
		if result.Error == nil || !testcookie.IsRetryableError(result.Error) {
			return result
		}
		worker.logger.Log("Retryable failure (attempt %d/%d): %v", attempt+1, maxFetchRetries, result.Error)
	}
	return result
}

// Submit adds a URL to the work queue.
func (s *Scheduler) Submit(rawURL string) {
	s.workChan <- rawURL
}

// Results returns the results channel for reading task outcomes.
func (s *Scheduler) Results() <-chan TaskResult {
	return s.resultsChan
}

// Close shuts down the scheduler and waits for workers to finish.
func (s *Scheduler) Close() {
	close(s.workChan)
	s.wg.Wait()
	if s.cancel != nil {
		s.cancel()
	}
	close(s.resultsChan)
}

// WorkerCount returns the number of workers.
func (s *Scheduler) WorkerCount() int {
	return len(s.workers)
}
