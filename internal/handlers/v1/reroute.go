package v1

import (
	"net/http"

	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/handlers/v1/mappers"
	"github.com/reviewdesk/review-engine/pkg/log"
)

func (h *ServiceHandler) CreateReroute(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("reroute_handler").WithContext(r.Context()).Operation("create_reroute").Build()

	answerID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var form api.RerouteCreate
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	reroute, err := h.rerouteSrv.Create(r.Context(), answerID, mappers.RerouteFormToRequest(form))
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("reroute_id", reroute.ID).WithString("expert_id", form.ExpertId).Log()
	respond(w, r, http.StatusCreated, mappers.RerouteToApi(reroute))
}

func (h *ServiceHandler) GetReroute(w http.ResponseWriter, r *http.Request) {
	rerouteID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	reroute, err := h.rerouteSrv.Get(r.Context(), rerouteID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mappers.RerouteToApi(reroute))
}

func (h *ServiceHandler) GetRerouteHistory(w http.ResponseWriter, r *http.Request) {
	answerID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	history, err := h.rerouteSrv.History(r.Context(), answerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, history)
}

func (h *ServiceHandler) RecordExpertDecision(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("reroute_handler").WithContext(r.Context()).Operation("record_expert_decision").Build()

	rerouteID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var form api.ExpertDecision
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	reroute, err := h.rerouteSrv.RecordExpertDecision(r.Context(), rerouteID, mappers.ExpertDecisionFormToRequest(form))
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("reroute_id", rerouteID).WithString("outcome", form.Outcome).Log()
	respond(w, r, http.StatusOK, mappers.RerouteToApi(reroute))
}

func (h *ServiceHandler) RecordModeratorDecision(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("reroute_handler").WithContext(r.Context()).Operation("record_moderator_decision").Build()

	rerouteID, err := uuidParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var form api.ModeratorDecision
	if err := h.decode(r, &form); err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	reroute, err := h.rerouteSrv.RecordModeratorDecision(r.Context(), rerouteID, mappers.ModeratorDecisionFormToRequest(form))
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithUUID("reroute_id", rerouteID).WithString("outcome", form.Outcome).Log()
	respond(w, r, http.StatusOK, mappers.RerouteToApi(reroute))
}
