package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	api "github.com/reviewdesk/review-engine/api/v1"
	"github.com/reviewdesk/review-engine/internal/handlers/validator"
	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/reviewdesk/review-engine/pkg/requestid"
)

type ErrorReply struct {
	api.Error
	status int
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

func newErrorReply(r *http.Request, status int, message string) ErrorReply {
	return ErrorReply{
		Error:  api.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())},
		status: status,
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	_ = render.Render(w, r, newErrorReply(r, status, message))
}

// statusFor maps the service error taxonomy onto http status codes.
func statusFor(err error) int {
	var (
		notFound    *service.ErrResourceNotFound
		missing     *service.ErrMissingSubmissionState
		invalid     *service.ErrInvalidState
		conflict    *service.ErrConflict
		unavailable *service.ErrUnavailable
		badRequest  *validator.ErrInvalidRequest
	)
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.As(err, &missing):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = fmt.Sprintf("internal error: %v", err)
	}
	writeError(w, r, status, msg)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, validator.NewErrInvalidRequest("invalid %s: %v", name, err)
	}
	return id, nil
}

func intParam(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, validator.NewErrInvalidRequest("invalid %s: %v", name, err)
	}
	return v, nil
}

// decode reads and validates a json body.
func (h *ServiceHandler) decode(r *http.Request, form any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return validator.NewErrInvalidRequest("empty body")
	}
	if err := render.DecodeJSON(r.Body, form); err != nil {
		return validator.NewErrInvalidRequest("malformed body: %v", err)
	}
	return h.validator.Struct(form)
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
