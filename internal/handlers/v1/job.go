package v1

import (
	"net/http"

	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/handlers/v1/mappers"
	"github.com/reviewdesk/review-engine/pkg/log"
)

func (h *ServiceHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("job_handler").WithContext(r.Context()).Operation("create_job").Build()

	var form api.JobCreate
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	id, err := h.dispatcher.Submit(r.Context(), form.QuestionIds)
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithInt64("job_id", id).WithInt("total", len(form.QuestionIds)).Log()
	respond(w, r, http.StatusAccepted, api.JobCreated{Id: id})
}

func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, mappers.JobListToApi(h.dispatcher.List()))
}

func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	job, ok := h.dispatcher.Status(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	respond(w, r, http.StatusOK, mappers.JobToApi(job))
}
