package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/config"
	handlers "github.com/reviewdesk/review-engine/internal/handlers/v1"
	"github.com/reviewdesk/review-engine/internal/jobs"
	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

var _ = Describe("service handler", Ordered, func() {
	var (
		s          store.Store
		gormdb     *gorm.DB
		router     *chi.Mux
		submission *service.SubmissionService
	)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).To(BeNil())
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	createReviewer := func(id string, role model.Role) {
		_, err := s.Reviewer().Create(context.TODO(), model.Reviewer{
			ID:               id,
			Name:             id,
			Role:             role,
			PreferenceRegion: "east",
			PreferenceCrop:   model.PreferenceAll,
			PreferenceDomain: "soil",
		})
		Expect(err).To(BeNil())
	}

	newAllocatedQuestion := func() uuid.UUID {
		q, err := s.Question().Create(context.TODO(), model.Question{Text: "acidic soil", Region: "east", Crop: "tea", Domain: "soil"})
		Expect(err).To(BeNil())
		_, err = submission.Initialize(context.TODO(), q.ID)
		Expect(err).To(BeNil())
		return q.ID
	}

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = ":memory:"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		gormdb = db
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())

		matcher := service.NewExpertMatcher(s)
		ledger := service.NewReputationLedger(s, 1)
		submission = service.NewSubmissionService(s, matcher, ledger, nil, 3)
		rebalancer := service.NewWorkloadRebalancer(s, ledger, nil, true)
		detector := service.NewStallDetector(s, matcher, time.Hour, 10)

		registry, err := jobs.NewMemoryRegistry(jobs.RegistryOptions{NodeID: 3})
		Expect(err).To(BeNil())
		dispatcher := jobs.NewDispatcher(jobs.NewAllocationWorker(s, submission, nil), registry, jobs.DispatcherOptions{MinWorkers: 2, MaxWorkers: 8})

		h := handlers.NewServiceHandler(
			submission,
			service.NewRerouteService(s, nil),
			rebalancer,
			service.NewRebalanceScheduler(detector, rebalancer, time.Minute),
			dispatcher,
		)
		router = chi.NewRouter()
		h.Routes(router)
	})

	BeforeEach(func() {
		createReviewer("e1", model.RoleExpert)
		createReviewer("e2", model.RoleExpert)
		createReviewer("e3", model.RoleExpert)
		createReviewer("e4", model.RoleExpert)
		createReviewer("mod", model.RoleModerator)
	})

	AfterEach(func() {
		for _, table := range []string{"reroute_entries", "reroutes", "submission_history", "submissions", "answers", "questions", "reviewers"} {
			gormdb.Exec("DELETE FROM " + table)
		}
	})

	AfterAll(func() {
		_ = s.Close()
	})

	It("reports health", func() {
		rec := do(http.MethodGet, "/health", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	Context("jobs", func() {
		It("submits a batch and exposes its status", func() {
			q, err := s.Question().Create(context.TODO(), model.Question{Text: "lime dose", Region: "east", Domain: "soil"})
			Expect(err).To(BeNil())

			rec := do(http.MethodPost, "/api/v1/jobs", api.JobCreate{QuestionIds: []uuid.UUID{q.ID}})
			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var created api.JobCreated
			decode(rec, &created)

			Eventually(func() string {
				rec := do(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", created.Id), nil)
				Expect(rec.Code).To(Equal(http.StatusOK))
				var job api.Job
				decode(rec, &job)
				return job.Status
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(string(jobs.JobCompleted)))

			rec = do(http.MethodGet, "/api/v1/jobs", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var list api.JobList
			decode(rec, &list)
			Expect(list).ToNot(BeEmpty())
		})

		It("rejects an empty batch", func() {
			rec := do(http.MethodPost, "/api/v1/jobs", api.JobCreate{})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown job", func() {
			rec := do(http.MethodGet, "/api/v1/jobs/42", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed job id", func() {
			rec := do(http.MethodGet, "/api/v1/jobs/abc", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("submissions", func() {
		It("returns 404 when the question was never allocated", func() {
			q, err := s.Question().Create(context.TODO(), model.Question{Text: "x", Region: "east"})
			Expect(err).To(BeNil())

			rec := do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%s/submission", q.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed question id", func() {
			rec := do(http.MethodGet, "/api/v1/questions/not-a-uuid/submission", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("allocates and advances", func() {
			questionID := newAllocatedQuestion()

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/submission/allocate", questionID), api.Allocate{ReviewerIds: []string{"e4"}})
			Expect(rec.Code).To(Equal(http.StatusOK))
			var sub api.Submission
			decode(rec, &sub)
			Expect(sub.Queue).To(HaveLen(4))
			Expect(sub.State).To(Equal(string(model.SubmissionUnstarted)))

			head := sub.Queue[0].ReviewerId
			rec = do(http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/submission/advance", questionID), api.Advance{ReviewerId: head, Decision: "in-review"})
			Expect(rec.Code).To(Equal(http.StatusOK))
			decode(rec, &sub)
			Expect(sub.State).To(Equal(string(model.SubmissionInReview)))

			other := sub.Queue[1].ReviewerId
			rec = do(http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/submission/advance", questionID), api.Advance{ReviewerId: other, Decision: "approved"})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("validates the advance body", func() {
			questionID := newAllocatedQuestion()

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/submission/advance", questionID), api.Advance{ReviewerId: "e1", Decision: "later"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var reply api.Error
			decode(rec, &reply)
			Expect(reply.Message).To(ContainSubstring("Decision"))
		})

		It("returns 404 for a queue position out of range", func() {
			questionID := newAllocatedQuestion()

			rec := do(http.MethodDelete, fmt.Sprintf("/api/v1/questions/%s/submission/queue/9", questionID), nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			rec = do(http.MethodDelete, fmt.Sprintf("/api/v1/questions/%s/submission/queue/2", questionID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var sub api.Submission
			decode(rec, &sub)
			Expect(sub.Queue).To(HaveLen(2))
		})

		It("records an answer", func() {
			questionID := newAllocatedQuestion()
			sub, err := submission.Get(context.TODO(), questionID)
			Expect(err).To(BeNil())
			author := sub.Queue[0].ReviewerID

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/answers", questionID), api.AnswerCreate{
				AuthorId: author,
				Text:     "apply dolomitic lime",
				Sources:  []string{"extension guide"},
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var answer api.Answer
			decode(rec, &answer)
			Expect(answer.Iteration).To(Equal(1))
			Expect(answer.Submission).ToNot(BeNil())
			Expect(answer.Submission.History).To(HaveLen(1))
		})
	})

	Context("reroutes", func() {
		It("runs a chain to moderator approval", func() {
			questionID := newAllocatedQuestion()
			sub, err := submission.Get(context.TODO(), questionID)
			Expect(err).To(BeNil())
			answer, _, err := submission.SubmitAnswer(context.TODO(), questionID, service.SubmitAnswerRequest{
				AuthorID: sub.Queue[0].ReviewerID,
				Text:     "first answer",
			})
			Expect(err).To(BeNil())

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%s/reroutes", answer.ID), api.RerouteCreate{ModeratorId: "mod", ExpertId: "e4"})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			var reroute api.Reroute
			decode(rec, &reroute)
			Expect(reroute.Entries).To(HaveLen(1))

			rec = do(http.MethodPost, fmt.Sprintf("/api/v1/reroutes/%s/expert-decision", reroute.Id), api.ExpertDecision{ExpertId: "e1", Outcome: "completed"})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

			rec = do(http.MethodPost, fmt.Sprintf("/api/v1/reroutes/%s/expert-decision", reroute.Id), api.ExpertDecision{ExpertId: "e4", Outcome: "completed"})
			Expect(rec.Code).To(Equal(http.StatusOK))
			decode(rec, &reroute)

			stale := reroute.Entries[0].UpdatedAt.Add(-time.Minute)
			rec = do(http.MethodPost, fmt.Sprintf("/api/v1/reroutes/%s/moderator-decision", reroute.Id), api.ModeratorDecision{Outcome: "approved", ExpectedUpdatedAt: &stale})
			Expect(rec.Code).To(Equal(http.StatusConflict))

			current := reroute.Entries[0].UpdatedAt
			rec = do(http.MethodPost, fmt.Sprintf("/api/v1/reroutes/%s/moderator-decision", reroute.Id), api.ModeratorDecision{Outcome: "approved", ExpectedUpdatedAt: &current})
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodGet, fmt.Sprintf("/api/v1/answers/%s/reroutes/history", answer.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var history service.RerouteHistory
			decode(rec, &history)
			Expect(history.Statuses()).To(Equal([]model.RerouteStatus{model.RerouteModeratorApproved}))
		})

		It("returns 404 for an unknown answer", func() {
			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%s/reroutes", uuid.New()), api.RerouteCreate{ModeratorId: "mod", ExpertId: "e4"})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Context("rebalance", func() {
		It("runs stall detection when no assignments are given", func() {
			rec := do(http.MethodPost, "/api/v1/rebalance", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var summary api.RebalanceSummary
			decode(rec, &summary)
			Expect(summary.SubmissionsProcessed).To(Equal(0))
		})

		It("applies explicit assignments", func() {
			questionID := newAllocatedQuestion()
			sub, err := submission.Get(context.TODO(), questionID)
			Expect(err).To(BeNil())

			rec := do(http.MethodPost, "/api/v1/rebalance", api.RebalanceRequest{Assignments: []api.Assignment{
				{SubmissionId: sub.ID, CandidateReviewerId: "e4"},
			}})
			Expect(rec.Code).To(Equal(http.StatusOK))

			var summary api.RebalanceSummary
			decode(rec, &summary)
			Expect(summary.SubmissionsProcessed).To(Equal(1))

			after, err := submission.Get(context.TODO(), questionID)
			Expect(err).To(BeNil())
			Expect(after.QueueIDs()).To(Equal([]string{"e4"}))
		})
	})
})
