package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/reviewdesk/review-engine/internal/service"
)

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewCommonValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("reviewer_id", reviewerIDValidator),
		},
		{
			Rule: registerFn("uuid_not_nil", uuidValidator),
		},
	}
}

func NewSubmissionValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("decision", oneOfValidator(
				string(service.DecisionInReview),
				string(service.DecisionApprove),
				string(service.DecisionReject),
			)),
		},
	}
}

func NewRerouteValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("expert_outcome", oneOfValidator(
				string(service.ExpertOutcomeCompleted),
				string(service.ExpertOutcomeRejected),
			)),
		},
		{
			Rule: registerFn("moderator_outcome", oneOfValidator(
				string(service.ModeratorOutcomeApproved),
				string(service.ModeratorOutcomeRejected),
			)),
		},
	}
}
