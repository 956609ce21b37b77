package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned by SubmitJob when the job queue has no room.
	ErrQueueFull = errors.New("job queue full")
	// ErrStopped is returned by SubmitJob after Stop.
	ErrStopped = errors.New("dispatcher stopped")
)

// Job represents a unit of background work.
type Job interface {
	Execute(ctx context.Context) error
	ID() string
}

// Worker runs jobs handed to it through its own JobChannel.
type Worker struct {
	ID         int
	WorkerPool chan chan Job // Idle workers register their JobChannel here
	JobChannel chan Job
	quit       <-chan struct{}
	wg         *sync.WaitGroup
	log        *logrus.Entry
}

// NewWorker creates a new Worker.
func NewWorker(id int, workerPool chan chan Job, quit <-chan struct{}, wg *sync.WaitGroup, log *logrus.Entry) Worker {
	return Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		quit:       quit,
		wg:         wg,
		log:        log.WithField("worker", id),
	}
}

// Start makes the Worker listen for jobs until quit is closed. A job already
// running is allowed to finish.
func (w Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-w.quit:
				return
			}

			select {
			case job := <-w.JobChannel:
				w.run(ctx, job)
			case <-w.quit:
				w.log.Debug("Worker stopping")
				return
			}
		}
	}()
}

func (w Worker) run(ctx context.Context, job Job) {
	log := w.log.WithField("job_id", job.ID())
	log.Debug("Started job")
	if err := job.Execute(ctx); err != nil {
		log.WithError(err).Error("Job failed")
		return
	}
	log.Debug("Finished job")
}

// Dispatcher manages a pool of workers and dispatches queued jobs to them.
type Dispatcher struct {
	MaxWorkers int
	WorkerPool chan chan Job
	JobQueue   chan Job
	Workers    []Worker

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	log      *logrus.Entry
}

// NewDispatcher creates a Dispatcher with maxWorkers workers and room for
// jobQueueSize pending jobs.
func NewDispatcher(maxWorkers, jobQueueSize int, logger *logrus.Logger) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		MaxWorkers: maxWorkers,
		WorkerPool: make(chan chan Job, maxWorkers),
		JobQueue:   make(chan Job, jobQueueSize),
		Workers:    make([]Worker, 0, maxWorkers),
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		log:        logger.WithField("component", "worker.dispatcher"),
	}
}

// Run starts the workers and the dispatch loop.
func (d *Dispatcher) Run() {
	for i := 1; i <= d.MaxWorkers; i++ {
		worker := NewWorker(i, d.WorkerPool, d.quit, &d.wg, d.log)
		d.Workers = append(d.Workers, worker)
		worker.Start(d.ctx)
	}

	d.wg.Add(1)
	go d.dispatch()
	d.log.WithField("workers", d.MaxWorkers).Info("Dispatcher is running")
}

// dispatch hands each queued job to the next idle worker.
func (d *Dispatcher) dispatch() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.JobQueue:
			select {
			case jobChannel := <-d.WorkerPool:
				select {
				case jobChannel <- job:
				case <-d.quit:
					return
				}
			case <-d.quit:
				return
			}
		case <-d.quit:
			return
		}
	}
}

// SubmitJob queues job without blocking.
func (d *Dispatcher) SubmitJob(job Job) error {
	select {
	case <-d.quit:
		return ErrStopped
	default:
	}

	select {
	case d.JobQueue <- job:
		d.log.WithField("job_id", job.ID()).Debug("Job submitted to queue")
		return nil
	default:
		d.log.WithField("job_id", job.ID()).Warn("Job queue full")
		return fmt.Errorf("%w: job %s", ErrQueueFull, job.ID())
	}
}

// Stop waits for running jobs to finish. Jobs still queued are dropped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		d.wg.Wait()
		d.cancel()
		if n := len(d.JobQueue); n > 0 {
			d.log.WithField("dropped", n).Warn("Dispatcher stopped with queued jobs")
		}
		d.log.Info("Dispatcher shutdown complete")
	})
}
