package v1

import (
	"net/http"

	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/handlers/v1/mappers"
	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/reviewdesk/review-engine/pkg/log"
)

// Rebalance applies explicit assignments, or runs a stall detection pass when
// the body is empty.
func (h *ServiceHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("rebalance_handler").WithContext(r.Context()).Operation("rebalance").Build()

	var form api.RebalanceRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &form); err != nil {
			logger.Error(err).Log()
			writeServiceError(w, r, err)
			return
		}
	}

	var (
		summary *service.RebalanceSummary
		err     error
	)
	if len(form.Assignments) == 0 {
		summary, err = h.scheduler.RunOnce(r.Context())
	} else {
		summary, err = h.rebalancer.Rebalance(r.Context(), mappers.AssignmentsFormToRequest(form))
	}
	if err != nil {
		logger.Error(err).Log()
		writeServiceError(w, r, err)
		return
	}

	logger.Success().WithInt("processed", summary.SubmissionsProcessed).Log()
	respond(w, r, http.StatusOK, mappers.RebalanceSummaryToApi(summary))
}
