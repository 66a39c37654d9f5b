package mappers

import (
	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/service"
)

func AdvanceFormToRequest(form api.Advance) service.AdvanceRequest {
	return service.AdvanceRequest{
		ReviewerID:      form.ReviewerId,
		AnswerID:        form.AnswerId,
		Decision:        service.Decision(form.Decision),
		RejectionReason: form.RejectionReason,
	}
}

func AnswerFormToRequest(form api.AnswerCreate) service.SubmitAnswerRequest {
	return service.SubmitAnswerRequest{
		AuthorID:        form.AuthorId,
		Text:            form.Text,
		Sources:         form.Sources,
		IsFinal:         form.IsFinal,
		SimilarityScore: form.SimilarityScore,
		Decision:        service.Decision(form.Decision),
	}
}

func RerouteFormToRequest(form api.RerouteCreate) service.CreateRerouteRequest {
	return service.CreateRerouteRequest{
		ModeratorID: form.ModeratorId,
		ExpertID:    form.ExpertId,
		Comment:     form.Comment,
	}
}

func ExpertDecisionFormToRequest(form api.ExpertDecision) service.ExpertDecisionRequest {
	return service.ExpertDecisionRequest{
		ExpertID:        form.ExpertId,
		Outcome:         service.ExpertOutcome(form.Outcome),
		AnswerID:        form.AnswerId,
		RejectionReason: form.RejectionReason,
	}
}

func ModeratorDecisionFormToRequest(form api.ModeratorDecision) service.ModeratorDecisionRequest {
	return service.ModeratorDecisionRequest{
		Outcome:           service.ModeratorOutcome(form.Outcome),
		RejectionReason:   form.RejectionReason,
		ExpectedUpdatedAt: form.ExpectedUpdatedAt,
	}
}

func AssignmentsFormToRequest(form api.RebalanceRequest) []service.Assignment {
	assignments := make([]service.Assignment, 0, len(form.Assignments))
	for _, a := range form.Assignments {
		assignments = append(assignments, service.Assignment{
			SubmissionID:        a.SubmissionId,
			CandidateReviewerID: a.CandidateReviewerId,
		})
	}
	return assignments
}
