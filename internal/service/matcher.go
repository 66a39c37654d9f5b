package service

import (
	"context"
	"sort"

	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"github.com/reviewdesk/review-engine/pkg/log"
	"github.com/thoas/go-funk"
)

// Candidate is a ranked expert for a question.
type Candidate struct {
	ReviewerID string
	Score      int
	Wildcard   bool
	Reputation int64
}

// ExpertMatcher ranks experts against the topical details of a question.
type ExpertMatcher struct {
	store  store.Store
	logger *log.StructuredLogger
}

func NewExpertMatcher(s store.Store) *ExpertMatcher {
	return &ExpertMatcher{
		store:  s,
		logger: log.NewDebugLogger("expert_matcher"),
	}
}

// SelectCandidates returns the ids of the qualifying experts, best first.
func (m *ExpertMatcher) SelectCandidates(ctx context.Context, topics model.TopicalPreferences, exclude ...string) ([]string, error) {
	candidates, err := m.Rank(ctx, topics, exclude...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ReviewerID)
	}
	return ids, nil
}

// Rank returns every expert accepting at least one of the question fields.
// Experts matching on every field only through "all" are placed last.
func (m *ExpertMatcher) Rank(ctx context.Context, topics model.TopicalPreferences, exclude ...string) ([]Candidate, error) {
	tracer := m.logger.WithContext(ctx).
		Operation("rank_experts").
		WithString("region", topics.Region).
		WithString("crop", topics.Crop).
		WithString("domain", topics.Domain).
		Build()

	reviewers, err := m.store.Reviewer().List(ctx,
		store.NewReviewerQueryFilter().
			ByRole(model.RoleExpert).
			WithoutBlocked().
			ByTopicalMatch(topics))
	if err != nil {
		tracer.Error(err).Log()
		return nil, classify(err)
	}

	seen := make(map[string]struct{}, len(reviewers))
	candidates := make([]Candidate, 0, len(reviewers))
	for _, r := range reviewers {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		if funk.ContainsString(exclude, r.ID) {
			continue
		}

		prefs := r.Preferences()
		if !prefs.Qualifies(topics) {
			continue
		}
		candidates = append(candidates, Candidate{
			ReviewerID: r.ID,
			Score:      prefs.Score(topics),
			Wildcard:   prefs.IsWildcard(),
			Reputation: r.Reputation,
		})
	}

	sortCandidates(candidates)

	tracer.Success().WithInt("candidates", len(candidates)).Log()
	return candidates, nil
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Wildcard != b.Wildcard {
			return !a.Wildcard
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Reputation != b.Reputation {
			return a.Reputation > b.Reputation
		}
		return a.ReviewerID < b.ReviewerID
	})
}
