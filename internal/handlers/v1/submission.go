package v1

import (
	"net/http"

	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/handlers/v1/mappers"
	"github.com/reviewdesk/review-engine/pkg/log"
)

func (h *ServiceHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	sub, err := h.submissionSrv.Get(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mappers.SubmissionToApi(sub))
}

func (h *ServiceHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("submission_handler").WithContext(r.Context()).Operation("allocate").Build()

	questionID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var form api.Allocate
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	sub, err := h.submissionSrv.Allocate(r.Context(), questionID, form.ReviewerIds)
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("question_id", questionID).Log()
	respond(w, r, http.StatusOK, mappers.SubmissionToApi(sub))
}

func (h *ServiceHandler) Advance(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("submission_handler").WithContext(r.Context()).Operation("advance").Build()

	questionID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var form api.Advance
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	sub, err := h.submissionSrv.Advance(r.Context(), questionID, mappers.AdvanceFormToRequest(form))
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("question_id", questionID).WithString("decision", form.Decision).Log()
	respond(w, r, http.StatusOK, mappers.SubmissionToApi(sub))
}

func (h *ServiceHandler) RemoveQueueEntry(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("submission_handler").WithContext(r.Context()).Operation("remove_queue_entry").Build()

	questionID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	sub, err := h.submissionSrv.RemoveAt(r.Context(), questionID, int(index))
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("question_id", questionID).WithInt64("index", index).Log()
	respond(w, r, http.StatusOK, mappers.SubmissionToApi(sub))
}

func (h *ServiceHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("submission_handler").WithContext(r.Context()).Operation("submit_answer").Build()

	questionID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var form api.AnswerCreate
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	answer, sub, err := h.submissionSrv.SubmitAnswer(r.Context(), questionID, mappers.AnswerFormToRequest(form))
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("answer_id", answer.ID).WithInt("iteration", answer.Iteration).Log()
	respond(w, r, http.StatusCreated, mappers.AnswerToApi(answer, sub))
}
