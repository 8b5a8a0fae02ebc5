package api

import (
	"net/http"

	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/freelancehub/backend/services/notify"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type applicationHandler struct {
	responder       Responder
	logger          zerolog.Logger
	applicationRepo *database.ApplicationRepo
	notifier        *notify.Notifier
}

func newApplicationHandler(applicationRepo *database.ApplicationRepo, notifier *notify.Notifier) applicationHandler {
	logger := log.With().Str("handlerName", "applicationHandler").Logger()

	return applicationHandler{
		responder:       NewResponder(logger),
		logger:          logger,
		applicationRepo: applicationRepo,
		notifier:        notifier,
	}
}

// ApplicationCollection represents a page of a project's applications
type ApplicationCollection struct {
	Applications []models.Application `json:"applications"`
	Pagination   database.PageInfo    `json:"pagination"`
}

// ApplicationViewCollection represents a page of the freelancer fan-out query
type ApplicationViewCollection struct {
	Applications []database.ApplicationView `json:"applications"`
	Pagination   database.PageInfo          `json:"pagination"`
}

// submitApplication lets a freelancer apply to an open project
func (h applicationHandler) submitApplication() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		if principal.Role != models.RoleFreelancer {
			h.responder.WriteError(w, errs.NewForbiddenError("only freelancers can apply"))
			return
		}
		projectID, err := parseProjectID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var input database.ApplicationInput
		if err := decodeJSON(r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		application, project, err := h.applicationRepo.Submit(projectID, principal.ID, input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.notifier.Dispatch(notify.ApplicationSubmitted{
			ProjectID:    project.ID,
			ProjectTitle: project.Title,
			FreelancerID: principal.ID,
			ClientID:     project.ClientID,
		})

		h.responder.WriteJSONStatus(w, http.StatusCreated, application)
	}
}

// listProjectApplications shows a project's applications in arrival order.
// The owner sees all of them, an applicant only their own.
func (h applicationHandler) listProjectApplications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		projectID, err := parseProjectID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		status, err := parseApplicationStatus(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		applications, pageInfo, err := h.applicationRepo.ListByProject(projectID, principal.ID, status, parsePageRequest(r))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ApplicationCollection{Applications: applications, Pagination: pageInfo})
	}
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

// decideApplication accepts or rejects a pending application on behalf of
// the project owner. Notifications go out only after the commit and never
// affect the response.
func (h applicationHandler) decideApplication() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		projectID, err := parseProjectID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		applicationIDStr := chi.URLParam(r, "applicationID")
		applicationID, err := uuid.Parse(applicationIDStr)
		if err != nil {
			h.responder.WriteError(w, errs.NewBadRequestError("invalid applicationID"))
			return
		}

		var req decisionRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.applicationRepo.Decide(projectID, applicationID, models.ApplicationStatus(req.Decision), principal.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.notifier.Dispatch(notify.ApplicationDecided{
			ProjectID:     result.Project.ID,
			ProjectTitle:  result.Project.Title,
			ApplicationID: result.Application.ID,
			Decision:      result.Application.Status,
			FreelancerID:  result.Application.FreelancerID,
			ClientID:      result.Project.ClientID,
		})
		for _, rejected := range result.AutoRejected {
			h.notifier.Dispatch(notify.ApplicationDecided{
				ProjectID:     result.Project.ID,
				ProjectTitle:  result.Project.Title,
				ApplicationID: rejected.ID,
				Decision:      models.ApplicationRejected,
				FreelancerID:  rejected.FreelancerID,
				ClientID:      result.Project.ClientID,
			})
		}

		h.responder.WriteJSON(w, result)
	}
}

// listMyApplications is the cross-project fan-out for the authenticated
// freelancer, newest first, with a denormalized project summary per row
func (h applicationHandler) listMyApplications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		if principal.Role != models.RoleFreelancer {
			h.responder.WriteError(w, errs.NewForbiddenError("only freelancers have applications"))
			return
		}
		status, err := parseApplicationStatus(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		views, pageInfo, err := h.applicationRepo.ListByFreelancer(principal.ID, status, parsePageRequest(r))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ApplicationViewCollection{Applications: views, Pagination: pageInfo})
	}
}

func parseApplicationStatus(r *http.Request) (*models.ApplicationStatus, error) {
	statusStr := r.URL.Query().Get("status")
	if statusStr == "" {
		return nil, nil
	}
	status := models.ApplicationStatus(statusStr)
	if !status.Valid() {
		return nil, errs.NewInvalidFieldError("status", "unknown application status")
	}
	return &status, nil
}
