package store_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/reviewdesk/review-engine/internal/config"
	st "github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

func newTestDB() *gorm.DB {
	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = ":memory:"
	db, err := st.InitDB(cfg)
	Expect(err).To(BeNil())
	return db
}

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		gormDB = newTestDB()
		store = st.NewStore(gormDB)
		Expect(store.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM reroute_entries;")
		gormDB.Exec("DELETE FROM reroutes;")
		gormDB.Exec("DELETE FROM submission_history;")
		gormDB.Exec("DELETE FROM submissions;")
		gormDB.Exec("DELETE FROM answers;")
		gormDB.Exec("DELETE FROM questions;")
		gormDB.Exec("DELETE FROM reviewers;")
	})

	Context("transaction", func() {
		It("insert a question successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())
			Expect(st.InTransaction(ctx)).To(BeTrue())

			q, err := store.Question().Create(ctx, model.Question{Text: "why are the leaves yellow?"})
			Expect(err).To(BeNil())
			Expect(q.Status).To(Equal(model.QuestionStatusOpen))

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) FROM questions;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rollback a question successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = store.Question().Create(ctx, model.Question{Text: "when to sow wheat?"})
			Expect(err).To(BeNil())

			questions, err := store.Question().List(ctx, st.NewQuestionQueryFilter())
			Expect(err).To(BeNil())
			Expect(questions).To(HaveLen(1))

			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) FROM questions;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("reuses the transaction already present in the context", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			nested, err := store.NewTransactionContext(ctx)
			Expect(err).To(BeNil())
			Expect(st.FromContext(nested)).To(BeIdenticalTo(st.FromContext(ctx)))

			_, _ = st.Rollback(ctx)
		})
	})

	Context("reviewer", func() {
		It("adjusts reputation atomically", func() {
			_, err := store.Reviewer().Create(context.TODO(), model.Reviewer{ID: "r1", Role: model.RoleExpert, Reputation: 5})
			Expect(err).To(BeNil())

			Expect(store.Reviewer().AdjustReputation(context.TODO(), "r1", 1)).To(Succeed())
			Expect(store.Reviewer().AdjustReputation(context.TODO(), "r1", -3)).To(Succeed())

			r, err := store.Reviewer().Get(context.TODO(), "r1")
			Expect(err).To(BeNil())
			Expect(r.Reputation).To(Equal(int64(3)))
		})

		It("fails to adjust an unknown reviewer", func() {
			err := store.Reviewer().AdjustReputation(context.TODO(), "ghost", 1)
			Expect(err).To(Equal(st.ErrRecordNotFound))
		})

		It("filters candidates by any matching field or the all sentinel", func() {
			for _, r := range []model.Reviewer{
				{ID: "region", Role: model.RoleExpert, PreferenceRegion: "punjab", PreferenceCrop: "rice", PreferenceDomain: "pests"},
				{ID: "wild", Role: model.RoleExpert, PreferenceRegion: "all", PreferenceCrop: "all", PreferenceDomain: "all"},
				{ID: "none", Role: model.RoleExpert, PreferenceRegion: "kerala", PreferenceCrop: "rice", PreferenceDomain: "pests"},
				{ID: "mod", Role: model.RoleModerator, PreferenceRegion: "punjab"},
			} {
				_, err := store.Reviewer().Create(context.TODO(), r)
				Expect(err).To(BeNil())
			}

			topics := model.TopicalPreferences{Region: "punjab", Crop: "wheat", Domain: "irrigation"}
			reviewers, err := store.Reviewer().List(context.TODO(),
				st.NewReviewerQueryFilter().ByRole(model.RoleExpert).ByTopicalMatch(topics))
			Expect(err).To(BeNil())

			ids := []string{}
			for _, r := range reviewers {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(ConsistOf("region", "wild"))
		})
	})

	Context("submission", func() {
		var question *model.Question

		BeforeEach(func() {
			var err error
			question, err = store.Question().Create(context.TODO(), model.Question{Text: "what fertilizer for maize?"})
			Expect(err).To(BeNil())
		})

		It("creates a submission with its history in order", func() {
			now := st.Now()
			sub, err := store.Submission().Create(context.TODO(), model.Submission{
				QuestionID: question.ID,
				Queue:      model.NewQueue([]string{"a", "b"}, now),
				History: []model.HistoryEntry{
					{ReviewerID: "a", Status: model.HistoryApproved, CreatedAt: now, UpdatedAt: now},
					{ReviewerID: "b", Status: model.HistoryInReview, CreatedAt: now, UpdatedAt: now},
				},
			})
			Expect(err).To(BeNil())

			got, err := store.Submission().GetByQuestionID(context.TODO(), question.ID)
			Expect(err).To(BeNil())
			Expect(got.ID).To(Equal(sub.ID))
			Expect(got.QueueIDs()).To(Equal([]string{"a", "b"}))
			Expect(got.History).To(HaveLen(2))
			Expect(got.History[1].Seq).To(Equal(1))
			Expect(got.State()).To(Equal(model.SubmissionInReview))
		})

		It("rejects a history append made against a stale read", func() {
			now := st.Now()
			sub, err := store.Submission().Create(context.TODO(), model.Submission{
				QuestionID: question.ID,
				Queue:      model.NewQueue([]string{"a", "b"}, now),
			})
			Expect(err).To(BeNil())

			stale, err := store.Submission().Get(context.TODO(), sub.ID)
			Expect(err).To(BeNil())

			Expect(store.Submission().AppendHistory(context.TODO(), sub, model.HistoryEntry{ReviewerID: "a", Status: model.HistoryApproved, CreatedAt: now, UpdatedAt: now})).To(Succeed())

			err = store.Submission().AppendHistory(context.TODO(), stale, model.HistoryEntry{ReviewerID: "b", Status: model.HistoryApproved, CreatedAt: now, UpdatedAt: now})
			Expect(errors.Is(err, st.ErrStaleVersion)).To(BeTrue())

			got, err := store.Submission().Get(context.TODO(), sub.ID)
			Expect(err).To(BeNil())
			Expect(got.History).To(HaveLen(1))
			Expect(got.History[0].ReviewerID).To(Equal("a"))
		})

		It("rejects an update made against a stale version", func() {
			sub, err := store.Submission().Create(context.TODO(), model.Submission{QuestionID: question.ID})
			Expect(err).To(BeNil())

			first, err := store.Submission().Get(context.TODO(), sub.ID)
			Expect(err).To(BeNil())
			second, err := store.Submission().Get(context.TODO(), sub.ID)
			Expect(err).To(BeNil())

			first.Queue = model.NewQueue([]string{"x"}, st.Now())
			Expect(store.Submission().Update(context.TODO(), first)).To(Succeed())
			Expect(first.Version).To(Equal(1))

			second.Queue = model.NewQueue([]string{"y"}, st.Now())
			err = store.Submission().Update(context.TODO(), second)
			Expect(errors.Is(err, st.ErrStaleVersion)).To(BeTrue())

			got, err := store.Submission().Get(context.TODO(), sub.ID)
			Expect(err).To(BeNil())
			Expect(got.QueueIDs()).To(Equal([]string{"x"}))
		})

		It("returns not found for a missing submission", func() {
			_, err := store.Submission().GetByQuestionID(context.TODO(), uuid.New())
			Expect(err).To(Equal(st.ErrRecordNotFound))
		})

		It("cascades the question deletion", func() {
			now := st.Now()
			_, err := store.Submission().Create(context.TODO(), model.Submission{
				QuestionID: question.ID,
				Queue:      model.NewQueue([]string{"a"}, now),
				History:    []model.HistoryEntry{{ReviewerID: "a", Status: model.HistoryInReview, CreatedAt: now, UpdatedAt: now}},
			})
			Expect(err).To(BeNil())
			_, err = store.Answer().Create(context.TODO(), model.Answer{QuestionID: question.ID, AuthorID: "a", Iteration: 1, Text: "urea"})
			Expect(err).To(BeNil())

			Expect(store.Question().Delete(context.TODO(), question.ID)).To(Succeed())

			for _, table := range []string{"questions", "submissions", "submission_history", "answers"} {
				count := -1
				Expect(gormDB.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error).To(BeNil())
				Expect(count).To(Equal(0), table)
			}
		})
	})

	Context("reroute", func() {
		It("refuses to update an entry whose stamp changed", func() {
			now := st.Now()
			reroute, err := store.Reroute().Create(context.TODO(), model.Reroute{
				QuestionID: uuid.New(),
				AnswerID:   uuid.New(),
				Entries: []model.RerouteEntry{
					{ReroutedBy: "m", ReroutedTo: "e", Status: model.RerouteExpertCompleted, ReroutedAt: now, UpdatedAt: now},
				},
			})
			Expect(err).To(BeNil())

			loaded, err := store.Reroute().Get(context.TODO(), reroute.ID)
			Expect(err).To(BeNil())
			last := *loaded.Last()

			stale := last
			stale.Status = model.RerouteModeratorRejected
			stale.UpdatedAt = st.Now()
			err = store.Reroute().UpdateLastEntry(context.TODO(), &stale, model.RerouteExpertCompleted, last.UpdatedAt.Add(-1))
			Expect(err).To(Equal(st.ErrStaleVersion))

			fresh := last
			fresh.Status = model.RerouteModeratorApproved
			fresh.UpdatedAt = st.Now()
			Expect(store.Reroute().UpdateLastEntry(context.TODO(), &fresh, model.RerouteExpertCompleted, last.UpdatedAt)).To(Succeed())

			loaded, err = store.Reroute().GetByAnswerID(context.TODO(), reroute.AnswerID)
			Expect(err).To(BeNil())
			Expect(loaded.Statuses()).To(Equal([]model.RerouteStatus{model.RerouteModeratorApproved}))
		})
	})
})
