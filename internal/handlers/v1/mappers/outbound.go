package mappers

import (
	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/jobs"
	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/reviewdesk/review-engine/internal/store/model"
)

func JobToApi(j jobs.Job) api.Job {
	log := j.Log
	if log == nil {
		log = []string{}
	}
	return api.Job{
		Id:         j.ID,
		Kind:       j.Kind,
		Status:     string(j.Status),
		Total:      j.Total,
		Processed:  j.Processed,
		Failed:     j.Failed,
		Chunks:     j.Chunks,
		Log:        log,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
		FinishedAt: j.FinishedAt,
	}
}

func JobListToApi(list []jobs.Job) api.JobList {
	out := make(api.JobList, 0, len(list))
	for _, j := range list {
		out = append(out, JobToApi(j))
	}
	return out
}

func SubmissionToApi(s *model.Submission) api.Submission {
	queue := make([]api.QueueEntry, 0, len(s.Queue))
	for _, e := range s.Queue {
		queue = append(queue, api.QueueEntry{ReviewerId: e.ReviewerID, AssignedAt: e.AssignedAt})
	}

	history := make([]api.HistoryEntry, 0, len(s.History))
	for _, h := range s.History {
		history = append(history, api.HistoryEntry{
			Seq:             h.Seq,
			ReviewerId:      h.ReviewerID,
			AnswerId:        h.AnswerID,
			Status:          string(h.Status),
			RejectionReason: h.RejectionReason,
			CreatedAt:       h.CreatedAt,
			UpdatedAt:       h.UpdatedAt,
		})
	}

	return api.Submission{
		Id:              s.ID,
		QuestionId:      s.QuestionID,
		State:           string(s.State()),
		Queue:           queue,
		History:         history,
		LastRespondedBy: s.LastRespondedBy,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func AnswerToApi(a *model.Answer, s *model.Submission) api.Answer {
	sources := a.Sources
	if sources == nil {
		sources = []string{}
	}
	answer := api.Answer{
		Id:                  a.ID,
		QuestionId:          a.QuestionID,
		AuthorId:            a.AuthorID,
		Iteration:           a.Iteration,
		IsFinal:             a.IsFinal,
		Text:                a.Text,
		Sources:             sources,
		SimilarityScore:     a.SimilarityScore,
		ModerationStatus:    string(a.ModerationStatus),
		ModerationRejection: a.ModerationRejection,
		CreatedAt:           a.CreatedAt,
	}
	if s != nil {
		sub := SubmissionToApi(s)
		answer.Submission = &sub
	}
	return answer
}

func RerouteToApi(r *model.Reroute) api.Reroute {
	entries := make([]api.RerouteEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, api.RerouteEntry{
			Seq:             e.Seq,
			ReroutedBy:      e.ReroutedBy,
			ReroutedTo:      e.ReroutedTo,
			Status:          string(e.Status),
			Comment:         e.Comment,
			RejectionReason: e.RejectionReason,
			AnswerId:        e.AnswerID,
			ReroutedAt:      e.ReroutedAt,
			UpdatedAt:       e.UpdatedAt,
		})
	}
	return api.Reroute{
		Id:         r.ID,
		QuestionId: r.QuestionID,
		AnswerId:   r.AnswerID,
		Entries:    entries,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func RebalanceSummaryToApi(s *service.RebalanceSummary) api.RebalanceSummary {
	return api.RebalanceSummary{
		Message:              s.Message,
		ExpertsInvolved:      s.ExpertsInvolved,
		SubmissionsProcessed: s.SubmissionsProcessed,
	}
}
