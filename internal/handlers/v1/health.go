package v1

import (
	"net/http"

	api "github.com/reviewdesk/review-engine/api/v1"
)

func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, api.Status{Status: "ok"})
}
