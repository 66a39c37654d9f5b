package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/pkg/metrics"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyBatch = errors.New("no questions to allocate")

type Worker interface {
	Work(ctx context.Context, questionID uuid.UUID) error
}

type DispatcherOptions struct {
	MinWorkers int
	MaxWorkers int
}

// Dispatcher splits a batch of new questions into chunks, allocates every
// chunk on its own goroutine and folds their progress into the registry.
type Dispatcher struct {
	worker   Worker
	registry Registry
	opts     DispatcherOptions
	cpuCount func() int
	baseCtx  context.Context
}

func NewDispatcher(worker Worker, registry Registry, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		worker:   worker,
		registry: registry,
		opts:     opts,
		cpuCount: runtime.NumCPU,
		baseCtx:  context.Background(),
	}
}

func (d *Dispatcher) WithCPUCount(fn func() int) *Dispatcher {
	d.cpuCount = fn
	return d
}

// WithBaseContext sets the context jobs run under. Jobs outlive the request
// that submitted them, so they never inherit its cancellation.
func (d *Dispatcher) WithBaseContext(ctx context.Context) *Dispatcher {
	d.baseCtx = ctx
	return d
}

// Submit registers a job for the batch and returns its id without waiting.
// Repeated question ids are allocated once.
func (d *Dispatcher) Submit(ctx context.Context, questionIDs []uuid.UUID) (int64, error) {
	if len(questionIDs) == 0 {
		return 0, ErrEmptyBatch
	}
	submitted := len(questionIDs)
	questionIDs = funk.Uniq(questionIDs).([]uuid.UUID)

	n := ChunkCount(len(questionIDs), d.cpuCount(), d.opts.MinWorkers, d.opts.MaxWorkers)
	chunks := Partition(questionIDs, n)

	job := d.registry.Create(len(questionIDs), len(chunks))
	d.registry.Update(job.ID, func(j *Job) {
		j.Log = append(j.Log, fmt.Sprintf("dispatched %d questions on %d workers", len(questionIDs), len(chunks)))
		if dropped := submitted - len(questionIDs); dropped > 0 {
			j.Log = append(j.Log, fmt.Sprintf("ignored %d duplicate question ids", dropped))
		}
	})

	metrics.IncreaseJobsTotalMetric(string(JobRunning))
	metrics.IncreaseJobsRunningMetric()

	zap.S().Named("dispatcher").Infow("allocation job submitted", "job_id", job.ID, "total", len(questionIDs), "chunks", len(chunks))

	go d.run(job.ID, chunks)

	return job.ID, nil
}

func (d *Dispatcher) Status(id int64) (Job, bool) {
	return d.registry.Get(id)
}

func (d *Dispatcher) List() []Job {
	return d.registry.List()
}

func (d *Dispatcher) run(jobID int64, chunks [][]uuid.UUID) {
	progressCh := make(chan progress)
	done := make(chan struct{})

	go func() {
		defer close(done)
		d.aggregate(jobID, progressCh)
	}()

	g := new(errgroup.Group)
	for i, chunk := range chunks {
		g.Go(func() error {
			return d.runChunk(d.baseCtx, i, chunk, progressCh)
		})
	}
	chunkErr := g.Wait()
	close(progressCh)
	<-done

	status := JobCompleted
	if chunkErr != nil {
		status = JobFailed
	}
	d.registry.Update(jobID, func(j *Job) {
		j.Status = status
		if chunkErr != nil {
			j.Log = append(j.Log, fmt.Sprintf("job failed: %v", chunkErr))
		} else {
			j.Log = append(j.Log, fmt.Sprintf("job completed: %d processed, %d failed", j.Processed, j.Failed))
		}
	})

	metrics.DecreaseJobsRunningMetric()
	metrics.IncreaseJobsTotalMetric(string(status))
	zap.S().Named("dispatcher").Infow("allocation job finished", "job_id", jobID, "status", status)
}

// runChunk allocates its questions one by one. Item failures are reported and
// skipped; only a cancelled context or a crash stops the chunk.
func (d *Dispatcher) runChunk(ctx context.Context, idx int, chunk []uuid.UUID, out chan<- progress) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chunk %d crashed: %v", idx, r)
			out <- progress{Chunk: idx, Fatal: true, Err: err}
		}
	}()

	for _, id := range chunk {
		if err := ctx.Err(); err != nil {
			out <- progress{Chunk: idx, Fatal: true, Err: err}
			return fmt.Errorf("chunk %d stopped: %w", idx, err)
		}

		werr := d.worker.Work(ctx, id)
		p := progress{Chunk: idx, QuestionID: id, Err: werr}
		if werr == nil {
			p.Msg = fmt.Sprintf("chunk %d: question %s allocated", idx, id)
		} else {
			p.Msg = fmt.Sprintf("chunk %d: question %s failed: %v", idx, id, werr)
		}
		out <- p
	}
	return nil
}

func (d *Dispatcher) aggregate(jobID int64, in <-chan progress) {
	for p := range in {
		d.registry.Update(jobID, func(j *Job) {
			switch {
			case p.Fatal:
				j.Log = append(j.Log, fmt.Sprintf("chunk %d aborted: %v", p.Chunk, p.Err))
				return
			case p.Err != nil:
				j.Failed++
				metrics.IncreaseJobItemsMetric("failed")
			default:
				metrics.IncreaseJobItemsMetric("succeeded")
			}
			j.Processed++
			j.Log = append(j.Log, p.Msg)
		})
	}
}
