package gui

import (
	"context"
	"errors"
	"sync"
	"time"

	"codeberg.org/snonux/cardstudio/internal/aigen"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

var (
	ErrQueueStopped = errors.New("generation queue is stopped")
	ErrQueueFull    = errors.New("too many generation requests waiting")
)

// GenerateFunc produces cards for a request
type GenerateFunc func(ctx context.Context, req aigen.Request) ([]flow.Card, error)

// JobStatus represents the current state of a job
type JobStatus int

const (
	StatusQueued JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// GenerationJob is one AI generation request and its outcome
type GenerationJob struct {
	ID          int
	Request     aigen.Request
	Status      JobStatus
	Cards       []flow.Card
	Error       error
	StartedAt   time.Time
	CompletedAt time.Time
}

// GenerationQueue runs generation requests one at a time in the
// background so the editor stays responsive. onUpdate gets a copy of the
// job after every status change, on the worker goroutine.
type GenerationQueue struct {
	jobs    chan *GenerationJob
	results map[int]*GenerationJob
	nextID  int
	stopped bool
	mu      sync.Mutex

	generate GenerateFunc
	onUpdate func(GenerationJob)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGenerationQueue starts the queue worker
func NewGenerationQueue(ctx context.Context, generate GenerateFunc, onUpdate func(GenerationJob)) *GenerationQueue {
	queueCtx, cancel := context.WithCancel(ctx)

	q := &GenerationQueue{
		jobs:     make(chan *GenerationJob, 8),
		results:  make(map[int]*GenerationJob),
		nextID:   1,
		generate: generate,
		onUpdate: onUpdate,
		ctx:      queueCtx,
		cancel:   cancel,
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Submit validates the request and queues it
func (q *GenerationQueue) Submit(req aigen.Request) (GenerationJob, error) {
	if err := req.Validate(); err != nil {
		return GenerationJob{}, err
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return GenerationJob{}, ErrQueueStopped
	}

	job := &GenerationJob{ID: q.nextID, Request: req, Status: StatusQueued}
	select {
	case q.jobs <- job:
	default:
		q.mu.Unlock()
		return GenerationJob{}, ErrQueueFull
	}
	q.nextID++
	q.results[job.ID] = job
	snapshot := *job
	q.mu.Unlock()

	q.notify(snapshot)
	return snapshot, nil
}

// Job returns a copy of a job by ID
func (q *GenerationQueue) Job(id int) (GenerationJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.results[id]
	if !ok {
		return GenerationJob{}, false
	}
	return *job, true
}

// Status returns the current queue statistics
func (q *GenerationQueue) Status() (queued, processing, completed, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.results {
		switch job.Status {
		case StatusQueued:
			queued++
		case StatusProcessing:
			processing++
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Stop cancels the running job and waits for the worker to exit. Jobs
// still queued are failed with ErrQueueStopped.
func (q *GenerationQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

func (q *GenerationQueue) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		if q.ctx.Err() != nil {
			q.finish(job, nil, ErrQueueStopped)
			continue
		}

		q.mu.Lock()
		job.Status = StatusProcessing
		job.StartedAt = time.Now()
		snapshot := *job
		q.mu.Unlock()
		q.notify(snapshot)

		cards, err := q.generate(q.ctx, job.Request)
		q.finish(job, cards, err)
	}
}

func (q *GenerationQueue) finish(job *GenerationJob, cards []flow.Card, err error) {
	q.mu.Lock()
	job.CompletedAt = time.Now()
	if err != nil {
		job.Status = StatusFailed
		job.Error = err
	} else {
		job.Status = StatusCompleted
		job.Cards = cards
	}
	snapshot := *job
	q.mu.Unlock()

	q.notify(snapshot)
}

func (q *GenerationQueue) notify(job GenerationJob) {
	if q.onUpdate != nil {
		q.onUpdate(job)
	}
}
