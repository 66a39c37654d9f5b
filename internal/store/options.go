package store

import (
	"time"

	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type QuestionQueryFilter BaseQuerier

func NewQuestionQueryFilter() *QuestionQueryFilter {
	return &QuestionQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *QuestionQueryFilter) ByID(ids ...string) *QuestionQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id IN ?", ids)
	})
	return qf
}

type ReviewerQueryFilter BaseQuerier

func NewReviewerQueryFilter() *ReviewerQueryFilter {
	return &ReviewerQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (rf *ReviewerQueryFilter) ByRole(role model.Role) *ReviewerQueryFilter {
	rf.QueryFn = append(rf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("role = ?", role)
	})
	return rf
}

func (rf *ReviewerQueryFilter) ByID(ids ...string) *ReviewerQueryFilter {
	rf.QueryFn = append(rf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id IN ?", ids)
	})
	return rf
}

func (rf *ReviewerQueryFilter) WithoutBlocked() *ReviewerQueryFilter {
	rf.QueryFn = append(rf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("blocked = ?", false)
	})
	return rf
}

// ByTopicalMatch keeps reviewers whose stored preference equals the question
// field, or the "all" sentinel, on at least one of region, crop and domain.
func (rf *ReviewerQueryFilter) ByTopicalMatch(t model.TopicalPreferences) *ReviewerQueryFilter {
	accepted := func(v string) []string { return []string{v, model.PreferenceAll, ""} }
	rf.QueryFn = append(rf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("preference_region IN ? OR preference_crop IN ? OR preference_domain IN ?",
			accepted(t.Region), accepted(t.Crop), accepted(t.Domain))
	})
	return rf
}

type SubmissionQueryFilter BaseQuerier

func NewSubmissionQueryFilter() *SubmissionQueryFilter {
	return &SubmissionQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (sf *SubmissionQueryFilter) ByQuestionStatus(statuses ...model.QuestionStatus) *SubmissionQueryFilter {
	sf.QueryFn = append(sf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("question_id IN (SELECT id FROM questions WHERE status IN ?)", statuses)
	})
	return sf
}

func (sf *SubmissionQueryFilter) UpdatedBefore(t time.Time) *SubmissionQueryFilter {
	sf.QueryFn = append(sf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("updated_at < ?", t)
	})
	return sf
}

type SubmissionQueryOptions BaseQuerier

func NewSubmissionQueryOptions() *SubmissionQueryOptions {
	return &SubmissionQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *SubmissionQueryOptions) WithLimit(limit int) *SubmissionQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

func (o *SubmissionQueryOptions) WithSortOrder(sort SortOrder) *SubmissionQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		switch sort {
		case SortByUpdatedTime:
			return tx.Order("updated_at")
		default:
			return tx
		}
	})
	return o
}

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByUpdatedTime
)
