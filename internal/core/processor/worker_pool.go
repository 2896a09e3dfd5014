package processor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"azure-face-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// RecognitionJob is one camera recognition command.
type RecognitionJob struct {
	ProfileID           string
	Camera              string
	ConfidenceThreshold float64
}

// CommandRunner executes one recognition command end to end, including
// journaling and event publishing.
type CommandRunner interface {
	RunRecognition(ctx context.Context, job RecognitionJob) (*Result, error)
}

// jobEnvelope carries a job and its private result channel through the pool.
type jobEnvelope struct {
	ctx      context.Context
	job      RecognitionJob
	resultCh chan *jobResult
}

type jobResult struct {
	result *Result
	err    error
}

// WorkerPool bounds how many recognition commands run concurrently. Camera
// automations fire in bursts; the pool keeps a burst from stacking unbounded
// requests on the remote API.
type WorkerPool struct {
	runner          CommandRunner
	jobs            chan *jobEnvelope
	workerCount     int
	activeJobs      int
	activeJobsMutex sync.Mutex
	shutdown        chan struct{}
}

// NewWorkerPool creates a pool sized to 75% of the available CPUs, with a
// minimum of 2 workers, and starts it.
func NewWorkerPool(runner CommandRunner) *WorkerPool {
	availableCPUs := runtime.NumCPU()
	workerCount := max(2, (availableCPUs*3)/4)

	log.Infof("Initializing recognition worker pool with %d workers", workerCount)

	pool := &WorkerPool{
		runner:      runner,
		jobs:        make(chan *jobEnvelope, workerCount*2),
		workerCount: workerCount,
		shutdown:    make(chan struct{}),
	}

	pool.startWorkers()
	return pool
}

// startWorkers starts the worker goroutines.
func (p *WorkerPool) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		go func(workerID int) {
			log.Debugf("Worker %d started", workerID)

			for {
				select {
				case envelope, ok := <-p.jobs:
					if !ok {
						log.Debugf("Worker %d shutting down (job channel closed)", workerID)
						return
					}

					p.activeJobsMutex.Lock()
					p.activeJobs++
					jobCount := p.activeJobs
					p.activeJobsMutex.Unlock()

					log.Debugf("Worker %d processing recognition for camera %s (active jobs: %d)",
						workerID, envelope.job.Camera, jobCount)

					startTime := timezone.Now()
					result, err := p.runner.RunRecognition(envelope.ctx, envelope.job)

					p.activeJobsMutex.Lock()
					p.activeJobs--
					p.activeJobsMutex.Unlock()

					select {
					case envelope.resultCh <- &jobResult{result: result, err: err}:
					default:
						log.Warnf("Worker %d: could not deliver result for camera %s",
							workerID, envelope.job.Camera)
					}

					log.Infof("Worker %d completed recognition for camera %s in %v",
						workerID, envelope.job.Camera, time.Since(startTime))

				case <-p.shutdown:
					log.Debugf("Worker %d received shutdown signal", workerID)
					return
				}
			}
		}(i)
	}
}

// Process runs one job through the pool and waits for its result.
func (p *WorkerPool) Process(ctx context.Context, job RecognitionJob) (*Result, error) {
	resultCh := make(chan *jobResult, 1)

	envelope := &jobEnvelope{
		ctx:      ctx,
		job:      job,
		resultCh: resultCh,
	}

	select {
	case p.jobs <- envelope:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-resultCh:
		return result.result, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ActiveJobCount returns the number of currently running jobs.
func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

// WorkerCount returns the number of workers in the pool.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// QueueCapacity returns the capacity of the job queue.
func (p *WorkerPool) QueueCapacity() int {
	return cap(p.jobs)
}

// Shutdown stops the pool. Pending jobs are abandoned.
func (p *WorkerPool) Shutdown() {
	close(p.shutdown)
	close(p.jobs)
}
