package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

var _ = Describe("expert matcher", Ordered, func() {
	var (
		s       store.Store
		gormdb  *gorm.DB
		matcher *service.ExpertMatcher
		topics  = model.TopicalPreferences{Region: "punjab", Crop: "wheat", Domain: "pests"}
	)

	BeforeAll(func() {
		s, gormdb = newTestStore()
		matcher = service.NewExpertMatcher(s)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		cleanTables(gormdb)
	})

	Context("select candidates", func() {
		It("ranks by score then reputation", func() {
			createExpert(s, "one-field", "punjab", "rice", "soil", 50)
			createExpert(s, "two-fields", "punjab", "wheat", "soil", 1)
			createExpert(s, "three-fields", "punjab", "wheat", "pests", 0)
			createExpert(s, "two-fields-senior", "punjab", "wheat", "irrigation", 9)

			ids, err := matcher.SelectCandidates(context.TODO(), topics)
			Expect(err).To(BeNil())
			Expect(ids).To(Equal([]string{"three-fields", "two-fields-senior", "two-fields", "one-field"}))
		})

		It("never ranks an all-wildcard expert above an exact match", func() {
			createExpert(s, "wildcard", "all", "all", "all", 1000)
			createExpert(s, "empty", "", "", "", 999)
			createExpert(s, "specialist", "kerala", "rice", "pests", 0)

			ids, err := matcher.SelectCandidates(context.TODO(), topics)
			Expect(err).To(BeNil())
			Expect(ids).To(HaveLen(3))
			Expect(ids[0]).To(Equal("specialist"))
			Expect(ids[1:]).To(ConsistOf("wildcard", "empty"))
		})

		It("ranks a partial wildcard as a regular candidate", func() {
			createExpert(s, "partial", "all", "wheat", "all", 0)
			createExpert(s, "full", "all", "all", "all", 10)

			candidates, err := matcher.Rank(context.TODO(), topics)
			Expect(err).To(BeNil())
			Expect(candidates).To(HaveLen(2))
			Expect(candidates[0].ReviewerID).To(Equal("partial"))
			Expect(candidates[0].Score).To(Equal(1))
			Expect(candidates[1].Wildcard).To(BeTrue())
		})

		It("ignores unrelated experts, moderators, blocked and excluded reviewers", func() {
			createExpert(s, "unrelated", "kerala", "rice", "soil", 100)
			createExpert(s, "excluded", "punjab", "wheat", "pests", 100)
			createExpert(s, "kept", "punjab", "rice", "soil", 0)
			createModerator(s, "mod")
			_, err := s.Reviewer().Create(context.TODO(), model.Reviewer{
				ID: "blocked", Role: model.RoleExpert, PreferenceRegion: "punjab", Blocked: true,
			})
			Expect(err).To(BeNil())

			ids, err := matcher.SelectCandidates(context.TODO(), topics, "excluded")
			Expect(err).To(BeNil())
			Expect(ids).To(Equal([]string{"kept"}))
		})

		It("returns an empty list when nobody qualifies", func() {
			ids, err := matcher.SelectCandidates(context.TODO(), topics)
			Expect(err).To(BeNil())
			Expect(ids).To(BeEmpty())
		})
	})
})

var _ = Describe("reputation ledger", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		s, gormdb = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		cleanTables(gormdb)
	})

	It("returns to the original value after an increase and a decrease", func() {
		createExpert(s, "expert", "punjab", "wheat", "pests", 7)
		ledger := service.NewReputationLedger(s, 1)

		Expect(ledger.Adjust(context.TODO(), "expert", true)).To(Succeed())
		Expect(reputationOf(s, "expert")).To(Equal(int64(8)))
		Expect(ledger.Adjust(context.TODO(), "expert", false)).To(Succeed())
		Expect(reputationOf(s, "expert")).To(Equal(int64(7)))
	})

	It("applies the configured delta without clamping", func() {
		createExpert(s, "expert", "punjab", "wheat", "pests", 0)
		ledger := service.NewReputationLedger(s, 5)

		Expect(ledger.Adjust(context.TODO(), "expert", false)).To(Succeed())
		Expect(reputationOf(s, "expert")).To(Equal(int64(-5)))
	})

	It("reports an unknown reviewer", func() {
		ledger := service.NewReputationLedger(s, 1)

		err := ledger.Adjust(context.TODO(), "ghost", true)
		Expect(err).NotTo(BeNil())
		Expect(service.IsNotFound(err)).To(BeTrue())
	})
})
