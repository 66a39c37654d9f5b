package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/reviewdesk/review-engine/internal/handlers/validator"
	"github.com/reviewdesk/review-engine/internal/jobs"
	"github.com/reviewdesk/review-engine/internal/service"
)

type ServiceHandler struct {
	submissionSrv *service.SubmissionService
	rerouteSrv    *service.RerouteService
	rebalancer    *service.WorkloadRebalancer
	scheduler     *service.RebalanceScheduler
	dispatcher    *jobs.Dispatcher
	validator     *validator.Validator
}

func NewServiceHandler(
	submissionSrv *service.SubmissionService,
	rerouteSrv *service.RerouteService,
	rebalancer *service.WorkloadRebalancer,
	scheduler *service.RebalanceScheduler,
	dispatcher *jobs.Dispatcher,
) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewCommonValidationRules()...)
	v.Register(validator.NewSubmissionValidationRules()...)
	v.Register(validator.NewRerouteValidationRules()...)

	return &ServiceHandler{
		submissionSrv: submissionSrv,
		rerouteSrv:    rerouteSrv,
		rebalancer:    rebalancer,
		scheduler:     scheduler,
		dispatcher:    dispatcher,
		validator:     v,
	}
}

// Routes mounts the api on router. Callers are authenticated upstream and
// pass reviewer identities explicitly.
func (h *ServiceHandler) Routes(router chi.Router) {
	router.Get("/health", h.Health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.CreateJob)
			r.Get("/", h.ListJobs)
			r.Get("/{id}", h.GetJob)
		})

		r.Post("/rebalance", h.Rebalance)

		r.Route("/questions/{id}", func(r chi.Router) {
			r.Get("/submission", h.GetSubmission)
			r.Post("/submission/allocate", h.Allocate)
			r.Post("/submission/advance", h.Advance)
			r.Delete("/submission/queue/{index}", h.RemoveQueueEntry)
			r.Post("/answers", h.SubmitAnswer)
		})

		r.Route("/answers/{id}/reroutes", func(r chi.Router) {
			r.Post("/", h.CreateReroute)
			r.Get("/history", h.GetRerouteHistory)
		})

		r.Route("/reroutes/{id}", func(r chi.Router) {
			r.Get("/", h.GetReroute)
			r.Post("/expert-decision", h.RecordExpertDecision)
			r.Post("/moderator-decision", h.RecordModeratorDecision)
		})
	})
}
