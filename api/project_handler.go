package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type projectHandler struct {
	responder   Responder
	logger      zerolog.Logger
	projectRepo *database.ProjectRepo
	userRepo    *database.UserRepo
}

func newProjectHandler(projectRepo *database.ProjectRepo, userRepo *database.UserRepo) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// ProjectCollection represents a page of projects
type ProjectCollection struct {
	Projects   []models.Project  `json:"projects"`
	Pagination database.PageInfo `json:"pagination"`
}

type createProjectRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RequiredSkills []string  `json:"required_skills"`
	BudgetMin      float64   `json:"budget_min"`
	BudgetMax      float64   `json:"budget_max"`
	Deadline       time.Time `json:"deadline"`
}

// createProject posts a new open project for the authenticated client
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		if principal.Role != models.RoleClient {
			h.responder.WriteError(w, errs.NewForbiddenError("only clients can post projects"))
			return
		}

		var req createProjectRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project := &models.Project{
			ClientID:       principal.ID,
			Title:          strings.TrimSpace(req.Title),
			Description:    strings.TrimSpace(req.Description),
			RequiredSkills: req.RequiredSkills,
			BudgetMin:      req.BudgetMin,
			BudgetMax:      req.BudgetMax,
			Deadline:       req.Deadline,
		}
		if err := h.projectRepo.Create(project); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, project)
	}
}

// listProjects returns the public, filtered project listing. When the caller
// does not filter by status the listing defaults to open projects.
func (h projectHandler) listProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseProjectFilters(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if filters.Status == nil {
			open := models.ProjectOpen
			filters.Status = &open
		}

		projects, pageInfo, err := h.projectRepo.ListFiltered(filters, parsePageRequest(r))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ProjectCollection{Projects: projects, Pagination: pageInfo})
	}
}

// getProject returns one project. Embedded applications are only included
// for the owner, and only on request.
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := parseProjectID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		principal, authenticated := principalFrom(r.Context())
		includeApplications := authenticated && r.URL.Query().Get("include_applications") == "true"

		project, err := h.projectRepo.FindByID(projectID, includeApplications)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		// Embedded applications are owner-only (admins excepted).
		if includeApplications && principal.ID != project.ClientID && principal.Role != models.RoleAdmin {
			project.Applications = nil
		}

		h.responder.WriteJSON(w, project)
	}
}

// updateProject applies an owner patch
func (h projectHandler) updateProject() http.HandlerFunc {
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

		var patch database.ProjectPatch
		if err := decodeJSON(r, &patch); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projectRepo.Update(projectID, patch, principal.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, project)
	}
}

// deleteProject removes an owner's project if it has no applications
func (h projectHandler) deleteProject() http.HandlerFunc {
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

		if err := h.projectRepo.Delete(projectID, principal.ID); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, map[string]string{"status": "deleted"})
	}
}

// recommendedProjects lists open projects overlapping the caller's declared
// skills. With no declared skills this is identical to the open listing.
func (h projectHandler) recommendedProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		if principal.Role != models.RoleFreelancer {
			h.responder.WriteError(w, errs.NewForbiddenError("recommendations are for freelancers"))
			return
		}

		user, err := h.userRepo.FindByID(principal.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		projects, pageInfo, err := h.projectRepo.RecommendedForSkills(user.Skills, parsePageRequest(r))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ProjectCollection{Projects: projects, Pagination: pageInfo})
	}
}

func parseProjectID(r *http.Request) (uuid.UUID, error) {
	projectIDStr := chi.URLParam(r, "projectID")
	if projectIDStr == "" {
		return uuid.Nil, errs.NewBadRequestError("missing projectID")
	}
	projectID, err := uuid.Parse(projectIDStr)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid projectID")
	}
	return projectID, nil
}

func parseProjectFilters(r *http.Request) (database.ProjectFilters, error) {
	query := r.URL.Query()
	var filters database.ProjectFilters

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.ProjectStatus(statusStr)
		if !status.Valid() {
			return filters, errs.NewInvalidFieldError("status", "unknown project status")
		}
		filters.Status = &status
	}
	if skills := query.Get("skills"); skills != "" {
		filters.Skills = strings.Split(skills, ",")
	}
	if budgetMinStr := query.Get("budget_min"); budgetMinStr != "" {
		budgetMin, err := strconv.ParseFloat(budgetMinStr, 64)
		if err != nil {
			return filters, errs.NewInvalidFieldError("budget_min", "must be a number")
		}
		filters.BudgetMin = &budgetMin
	}
	if budgetMaxStr := query.Get("budget_max"); budgetMaxStr != "" {
		budgetMax, err := strconv.ParseFloat(budgetMaxStr, 64)
		if err != nil {
			return filters, errs.NewInvalidFieldError("budget_max", "must be a number")
		}
		filters.BudgetMax = &budgetMax
	}
	filters.Search = query.Get("search")
	filters.SortBy = query.Get("sort_by")
	filters.SortDesc = query.Get("sort_dir") != "asc"

	return filters, nil
}
