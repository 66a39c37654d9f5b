package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Registry keeps the status of bulk allocation jobs. Jobs are not persisted:
// a restart loses the history.
type Registry interface {
	Create(total, chunks int) Job
	Update(id int64, fn func(job *Job)) bool
	Get(id int64) (Job, bool)
	List() []Job
}

type RegistryOptions struct {
	NodeID      int64
	MaxLogLines int
	Retention   time.Duration
	MaxRetained int
}

type MemoryRegistry struct {
	mu   sync.Mutex
	node *snowflake.Node
	jobs map[int64]*Job
	opts RegistryOptions
	now  func() time.Time
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry(opts RegistryOptions) (*MemoryRegistry, error) {
	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create job id generator: %w", err)
	}
	if opts.MaxLogLines <= 0 {
		opts.MaxLogLines = 200
	}
	return &MemoryRegistry{
		node: node,
		jobs: make(map[int64]*Job),
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the clock used for timestamps and eviction.
func (r *MemoryRegistry) WithClock(now func() time.Time) *MemoryRegistry {
	r.now = now
	return r
}

func (r *MemoryRegistry) Create(total, chunks int) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict()

	now := r.now()
	job := &Job{
		ID:        r.node.Generate().Int64(),
		Kind:      JobKind,
		Status:    JobRunning,
		Total:     total,
		Chunks:    chunks,
		Log:       []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[job.ID] = job
	return job.clone()
}

// Update applies fn to the job under the registry lock and trims its log.
func (r *MemoryRegistry) Update(id int64, fn func(job *Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}

	fn(job)
	job.UpdatedAt = r.now()
	if job.Status.Finished() && job.FinishedAt == nil {
		finished := job.UpdatedAt
		job.FinishedAt = &finished
	}
	if over := len(job.Log) - r.opts.MaxLogLines; over > 0 {
		job.Log = append([]string(nil), job.Log[over:]...)
	}
	return true
}

func (r *MemoryRegistry) Get(id int64) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// List returns the retained jobs, newest first.
func (r *MemoryRegistry) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict()

	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.clone())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID > jobs[j].ID })
	return jobs
}

// evict drops finished jobs past the retention period, then the oldest
// finished jobs beyond MaxRetained. Running jobs are never evicted.
func (r *MemoryRegistry) evict() {
	var finished []*Job
	for id, job := range r.jobs {
		if !job.Status.Finished() {
			continue
		}
		if r.opts.Retention > 0 && job.FinishedAt != nil && r.now().Sub(*job.FinishedAt) > r.opts.Retention {
			delete(r.jobs, id)
			continue
		}
		finished = append(finished, job)
	}

	if r.opts.MaxRetained <= 0 || len(finished) <= r.opts.MaxRetained {
		return
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].ID < finished[j].ID })
	for _, job := range finished[:len(finished)-r.opts.MaxRetained] {
		delete(r.jobs, job.ID)
	}
}
