package jobs_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/reviewdesk/review-engine/internal/jobs"
)

type recordingWorker struct {
	mu      sync.Mutex
	seen    []uuid.UUID
	failFor map[uuid.UUID]bool
	panicOn map[uuid.UUID]bool
	delay   time.Duration
}

func (w *recordingWorker) Work(ctx context.Context, id uuid.UUID) error {
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	if w.panicOn[id] {
		panic("boom")
	}
	w.mu.Lock()
	w.seen = append(w.seen, id)
	w.mu.Unlock()
	if w.failFor[id] {
		return errors.New("no experts")
	}
	return nil
}

func (w *recordingWorker) Seen() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uuid.UUID(nil), w.seen...)
}

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

var _ = Describe("dispatcher", func() {
	var registry *jobs.MemoryRegistry

	BeforeEach(func() {
		var err error
		registry, err = jobs.NewMemoryRegistry(jobs.RegistryOptions{NodeID: 1, MaxLogLines: 100})
		Expect(err).To(BeNil())
	})

	It("processes every item and completes", func() {
		worker := &recordingWorker{delay: 5 * time.Millisecond}
		d := jobs.NewDispatcher(worker, registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 8}).
			WithCPUCount(func() int { return 16 })

		ids := newIDs(12)
		jobID, err := d.Submit(context.TODO(), ids)
		Expect(err).To(BeNil())

		job, ok := d.Status(jobID)
		Expect(ok).To(BeTrue())
		Expect(job.Total).To(Equal(12))
		Expect(job.Chunks).To(BeNumerically("<=", 8))

		last := 0
		Eventually(func() jobs.JobStatus {
			job, _ := d.Status(jobID)
			Expect(job.Processed).To(BeNumerically(">=", last))
			last = job.Processed
			return job.Status
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(jobs.JobCompleted))

		job, _ = d.Status(jobID)
		Expect(job.Processed).To(Equal(12))
		Expect(job.Failed).To(Equal(0))
		Expect(job.FinishedAt).ToNot(BeNil())
		Expect(worker.Seen()).To(ConsistOf(ids))
	})

	It("keeps going when items fail", func() {
		ids := newIDs(5)
		worker := &recordingWorker{failFor: map[uuid.UUID]bool{ids[1]: true, ids[3]: true}}
		d := jobs.NewDispatcher(worker, registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 8}).
			WithCPUCount(func() int { return 2 })

		jobID, err := d.Submit(context.TODO(), ids)
		Expect(err).To(BeNil())

		Eventually(func() jobs.JobStatus {
			job, _ := d.Status(jobID)
			return job.Status
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(jobs.JobCompleted))

		job, _ := d.Status(jobID)
		Expect(job.Chunks).To(Equal(2))
		Expect(job.Processed).To(Equal(5))
		Expect(job.Failed).To(Equal(2))
		Expect(job.Log).To(ContainElement(ContainSubstring("no experts")))
	})

	It("marks the job failed when a chunk crashes", func() {
		ids := newIDs(4)
		worker := &recordingWorker{panicOn: map[uuid.UUID]bool{ids[0]: true}}
		d := jobs.NewDispatcher(worker, registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 2}).
			WithCPUCount(func() int { return 4 })

		jobID, err := d.Submit(context.TODO(), ids)
		Expect(err).To(BeNil())

		Eventually(func() jobs.JobStatus {
			job, _ := d.Status(jobID)
			return job.Status
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(jobs.JobFailed))

		job, _ := d.Status(jobID)
		// the second chunk is unaffected
		Expect(job.Processed).To(Equal(2))
		Expect(job.Log).To(ContainElement(ContainSubstring("crashed")))
	})

	It("does not run jobs under the submitting context", func() {
		worker := &recordingWorker{delay: 10 * time.Millisecond}
		d := jobs.NewDispatcher(worker, registry, jobs.DispatcherOptions{MinWorkers: 1, MaxWorkers: 1})

		ctx, cancel := context.WithCancel(context.Background())
		jobID, err := d.Submit(ctx, newIDs(3))
		Expect(err).To(BeNil())
		cancel()

		Eventually(func() int {
			job, _ := d.Status(jobID)
			return job.Processed
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(3))
	})

	It("dispatches repeated ids once", func() {
		worker := &recordingWorker{}
		d := jobs.NewDispatcher(worker, registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 8}).
			WithCPUCount(func() int { return 8 })

		ids := newIDs(3)
		jobID, err := d.Submit(context.TODO(), []uuid.UUID{ids[0], ids[1], ids[0], ids[2], ids[1]})
		Expect(err).To(BeNil())

		job, _ := d.Status(jobID)
		Expect(job.Total).To(Equal(3))

		Eventually(func() jobs.JobStatus {
			job, _ := d.Status(jobID)
			return job.Status
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(jobs.JobCompleted))

		job, _ = d.Status(jobID)
		Expect(job.Processed).To(Equal(3))
		Expect(job.Log).To(ContainElement("ignored 2 duplicate question ids"))
		Expect(worker.Seen()).To(ConsistOf(ids))
	})

	It("rejects an empty batch", func() {
		d := jobs.NewDispatcher(&recordingWorker{}, registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 8})
		_, err := d.Submit(context.TODO(), nil)
		Expect(errors.Is(err, jobs.ErrEmptyBatch)).To(BeTrue())
		Expect(d.List()).To(BeEmpty())
	})

	It("lists submitted jobs", func() {
		d := jobs.NewDispatcher(&recordingWorker{}, registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 8})
		first, err := d.Submit(context.TODO(), newIDs(1))
		Expect(err).To(BeNil())
		second, err := d.Submit(context.TODO(), newIDs(2))
		Expect(err).To(BeNil())

		Eventually(func() []int64 {
			var ids []int64
			for _, j := range d.List() {
				ids = append(ids, j.ID)
			}
			return ids
		}).Should(Equal([]int64{second, first}))
	})
})
