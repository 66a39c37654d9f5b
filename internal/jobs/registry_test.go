package jobs_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/reviewdesk/review-engine/internal/jobs"
)

var _ = Describe("memory registry", func() {
	var (
		registry *jobs.MemoryRegistry
		now      time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		r, err := jobs.NewMemoryRegistry(jobs.RegistryOptions{
			NodeID:      1,
			MaxLogLines: 3,
			Retention:   time.Hour,
			MaxRetained: 2,
		})
		Expect(err).To(BeNil())
		registry = r.WithClock(func() time.Time { return now })
	})

	It("creates running jobs with unique ids", func() {
		a := registry.Create(4, 2)
		b := registry.Create(1, 1)

		Expect(a.ID).ToNot(Equal(b.ID))
		Expect(a.Status).To(Equal(jobs.JobRunning))
		Expect(a.Total).To(Equal(4))
		Expect(a.Chunks).To(Equal(2))
	})

	It("keeps only the tail of the log", func() {
		job := registry.Create(5, 1)
		for i := 0; i < 5; i++ {
			Expect(registry.Update(job.ID, func(j *jobs.Job) {
				j.Log = append(j.Log, fmt.Sprintf("line %d", i))
			})).To(BeTrue())
		}

		got, ok := registry.Get(job.ID)
		Expect(ok).To(BeTrue())
		Expect(got.Log).To(Equal([]string{"line 2", "line 3", "line 4"}))
	})

	It("returns copies", func() {
		job := registry.Create(1, 1)
		registry.Update(job.ID, func(j *jobs.Job) { j.Log = append(j.Log, "x") })

		got, _ := registry.Get(job.ID)
		got.Log[0] = "changed"

		again, _ := registry.Get(job.ID)
		Expect(again.Log[0]).To(Equal("x"))
	})

	It("stamps the finish time once", func() {
		job := registry.Create(1, 1)
		registry.Update(job.ID, func(j *jobs.Job) { j.Status = jobs.JobCompleted })

		got, _ := registry.Get(job.ID)
		Expect(got.FinishedAt).ToNot(BeNil())
		Expect(*got.FinishedAt).To(Equal(now))
	})

	It("reports unknown jobs", func() {
		_, ok := registry.Get(42)
		Expect(ok).To(BeFalse())
		Expect(registry.Update(42, func(*jobs.Job) {})).To(BeFalse())
	})

	It("evicts finished jobs past the retention period", func() {
		old := registry.Create(1, 1)
		registry.Update(old.ID, func(j *jobs.Job) { j.Status = jobs.JobCompleted })
		running := registry.Create(1, 1)

		now = now.Add(2 * time.Hour)

		list := registry.List()
		Expect(list).To(HaveLen(1))
		Expect(list[0].ID).To(Equal(running.ID))
	})

	It("evicts the oldest finished jobs beyond the retained maximum", func() {
		var ids []int64
		for i := 0; i < 4; i++ {
			job := registry.Create(1, 1)
			registry.Update(job.ID, func(j *jobs.Job) { j.Status = jobs.JobFailed })
			ids = append(ids, job.ID)
		}

		list := registry.List()
		Expect(list).To(HaveLen(2))
		Expect(list[0].ID).To(Equal(ids[3]))
		Expect(list[1].ID).To(Equal(ids[2]))
	})
})
