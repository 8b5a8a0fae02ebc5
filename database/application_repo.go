package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationRepo struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) *ApplicationRepo {
	return &ApplicationRepo{db}
}

// ApplicationInput carries the freelancer-supplied fields of a submission.
type ApplicationInput struct {
	CoverLetter       string  `json:"cover_letter"`
	ProposedRate      float64 `json:"proposed_rate"`
	EstimatedDuration string  `json:"estimated_duration"`
}

// DecisionResult is everything the caller needs after a decision: the decided
// application, the refreshed project, and the applications that were
// auto-rejected alongside an acceptance.
type DecisionResult struct {
	Application  models.Application   `json:"application"`
	Project      models.Project       `json:"project"`
	AutoRejected []models.Application `json:"-"`
}

// Submit appends a pending application to an open project. Preconditions are
// checked in a fixed order, each mapping to a distinct error, all inside the
// transaction that holds the project row.
func (r *ApplicationRepo) Submit(projectID, freelancerID uuid.UUID, input ApplicationInput) (*models.Application, *models.Project, error) {
	var (
		app     models.Application
		project models.Project
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFoundError("project not found")
			}
			return err
		}
		if project.Status != models.ProjectOpen {
			return errs.NewConflictError("project not open")
		}
		if project.ClientID == freelancerID {
			return errs.NewConflictError("cannot apply to own project")
		}
		var count int64
		if err := tx.Model(&models.Application{}).
			Where("project_id = ? AND freelancer_id = ?", projectID, freelancerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errs.NewConflictError("already applied")
		}

		app = models.Application{
			ProjectID:         projectID,
			FreelancerID:      freelancerID,
			CoverLetter:       input.CoverLetter,
			ProposedRate:      input.ProposedRate,
			EstimatedDuration: input.EstimatedDuration,
		}
		if err := models.ValidateApplication(&app); err != nil {
			return err
		}
		return tx.Create(&app).Error
	})
	if err != nil {
		return nil, nil, errs.NewDatabaseError("submit", "application", err)
	}
	return &app, &project, nil
}

// Decide accepts or rejects a pending application on behalf of the project
// owner. Accepting flips the project to assigned and bulk-rejects every other
// pending application in the same transaction, so a half-applied assignment
// is never observable. Rejecting touches nothing but the one application.
func (r *ApplicationRepo) Decide(projectID, applicationID uuid.UUID, decision models.ApplicationStatus, callerID uuid.UUID) (*DecisionResult, error) {
	if decision != models.ApplicationAccepted && decision != models.ApplicationRejected {
		return nil, errs.NewInvalidFieldError("decision", fmt.Sprintf("must be %q or %q", models.ApplicationAccepted, models.ApplicationRejected))
	}

	result := &DecisionResult{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := lockForUpdate(tx).First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFoundError("project not found")
			}
			return err
		}
		var app models.Application
		if err := tx.First(&app, "id = ? AND project_id = ?", applicationID, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFoundError("application not found")
			}
			return err
		}
		if project.ClientID != callerID {
			return errs.NewForbiddenError("only the project owner can decide applications")
		}
		if app.Status != models.ApplicationPending {
			return errs.NewConflictError("application not pending")
		}

		if decision == models.ApplicationRejected {
			if err := decideGuarded(tx, app.ID, models.ApplicationRejected); err != nil {
				return err
			}
			app.Status = models.ApplicationRejected
			result.Application = app
			result.Project = project
			return nil
		}

		// Acceptance. Collect the applications that will be auto-rejected
		// before flipping anything, the bulk write below covers them.
		var others []models.Application
		if err := tx.Where("project_id = ? AND status = ? AND id <> ?",
			projectID, models.ApplicationPending, app.ID).Find(&others).Error; err != nil {
			return err
		}

		if err := decideGuarded(tx, app.ID, models.ApplicationAccepted); err != nil {
			return err
		}
		assign := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", projectID, models.ProjectOpen).
			Updates(map[string]interface{}{
				"status":                 models.ProjectAssigned,
				"assigned_freelancer_id": app.FreelancerID,
			})
		if assign.Error != nil {
			return assign.Error
		}
		if assign.RowsAffected == 0 {
			return errs.NewConflictError("project not open")
		}
		if err := tx.Model(&models.Application{}).
			Where("project_id = ? AND status = ?", projectID, models.ApplicationPending).
			Update("status", models.ApplicationRejected).Error; err != nil {
			return err
		}

		app.Status = models.ApplicationAccepted
		project.Status = models.ProjectAssigned
		freelancerID := app.FreelancerID
		project.AssignedFreelancerID = &freelancerID
		for i := range others {
			others[i].Status = models.ApplicationRejected
		}
		result.Application = app
		result.Project = project
		result.AutoRejected = others
		return nil
	})
	if err != nil {
		return nil, errs.NewDatabaseError("decide", "application", err)
	}
	return result, nil
}

// decideGuarded moves a single application out of pending with the pending
// check folded into the write itself, so a concurrent decision that slipped
// past the row lock still can not overwrite a terminal status.
func decideGuarded(tx *gorm.DB, applicationID uuid.UUID, to models.ApplicationStatus) error {
	res := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", applicationID, models.ApplicationPending).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewConflictError("application not pending")
	}
	return nil
}

// ListByProject returns a project's applications in arrival order. The owner
// sees every application, anyone else only their own.
func (r *ApplicationRepo) ListByProject(projectID, callerID uuid.UUID, status *models.ApplicationStatus, page PageRequest) ([]models.Application, PageInfo, error) {
	page = page.normalize()

	var project models.Project
	if err := r.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, PageInfo{}, errs.NewNotFoundError("project not found")
		}
		return nil, PageInfo{}, errs.NewDatabaseError("find", "project", err)
	}

	q := r.db.Model(&models.Application{}).Where("project_id = ?", projectID)
	if project.ClientID != callerID {
		q = q.Where("freelancer_id = ?", callerID)
	}
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("count", "applications", err)
	}
	var apps []models.Application
	if err := q.Order("applied_at ASC, id").Offset(page.offset()).Limit(page.Limit).Find(&apps).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("list", "applications", err)
	}
	return apps, newPageInfo(page, total), nil
}

// ProjectSummary is the denormalized slice of the owning project attached to
// a cross-project application view.
type ProjectSummary struct {
	ID         uuid.UUID            `json:"id"`
	Title      string               `json:"title"`
	BudgetMin  float64              `json:"budget_min"`
	BudgetMax  float64              `json:"budget_max"`
	Deadline   time.Time            `json:"deadline"`
	Status     models.ProjectStatus `json:"status"`
	ClientName string               `json:"client_name"`
}

// ApplicationView is one row of the freelancer fan-out query.
type ApplicationView struct {
	models.Application
	Project ProjectSummary `json:"project"`
}

// ListByFreelancer aggregates one freelancer's applications across every
// project, newest first, paginated over the flattened result. Each row
// carries a project summary so callers need no second round trip.
func (r *ApplicationRepo) ListByFreelancer(freelancerID uuid.UUID, status *models.ApplicationStatus, page PageRequest) ([]ApplicationView, PageInfo, error) {
	page = page.normalize()

	q := r.db.Model(&models.Application{}).Where("freelancer_id = ?", freelancerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("count", "applications", err)
	}
	var apps []models.Application
	if err := q.Order("applied_at DESC, id").Offset(page.offset()).Limit(page.Limit).Find(&apps).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("list", "applications", err)
	}

	views, err := r.attachProjectSummaries(apps)
	if err != nil {
		return nil, PageInfo{}, err
	}
	return views, newPageInfo(page, total), nil
}

func (r *ApplicationRepo) attachProjectSummaries(apps []models.Application) ([]ApplicationView, error) {
	views := make([]ApplicationView, 0, len(apps))
	if len(apps) == 0 {
		return views, nil
	}

	projectIDs := make([]uuid.UUID, 0, len(apps))
	for _, a := range apps {
		projectIDs = append(projectIDs, a.ProjectID)
	}
	var projects []models.Project
	if err := r.db.Find(&projects, "id IN ?", projectIDs).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	projectByID := make(map[uuid.UUID]models.Project, len(projects))
	clientIDs := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = p
		clientIDs = append(clientIDs, p.ClientID)
	}
	var clients []models.User
	if err := r.db.Find(&clients, "id IN ?", clientIDs).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "users", err)
	}
	clientNameByID := make(map[uuid.UUID]string, len(clients))
	for _, c := range clients {
		clientNameByID[c.ID] = c.DisplayName
	}

	for _, a := range apps {
		p := projectByID[a.ProjectID]
		views = append(views, ApplicationView{
			Application: a,
			Project: ProjectSummary{
				ID:         p.ID,
				Title:      p.Title,
				BudgetMin:  p.BudgetMin,
				BudgetMax:  p.BudgetMax,
				Deadline:   p.Deadline,
				Status:     p.Status,
				ClientName: clientNameByID[p.ClientID],
			},
		})
	}
	return views, nil
}

// VerifyProjectInvariants re-checks the assignment invariants for a project:
// at most one accepted application, and project status assigned exactly when
// one application is accepted and the project points at that freelancer.
func (r *ApplicationRepo) VerifyProjectInvariants(projectID uuid.UUID) error {
	var accepted []models.Application
	if err := r.db.Find(&accepted, "project_id = ? AND status = ?", projectID, models.ApplicationAccepted).Error; err != nil {
		return errs.NewDatabaseError("list", "applications", err)
	}
	if len(accepted) > 1 {
		return fmt.Errorf("project %s has %d accepted applications", projectID, len(accepted))
	}

	var project models.Project
	if err := r.db.First(&project, "id = ?", projectID).Error; err != nil {
		return errs.NewDatabaseError("find", "project", err)
	}
	assigned := project.Status == models.ProjectAssigned
	if assigned != (len(accepted) == 1) {
		return fmt.Errorf("project %s status %q does not match %d accepted applications",
			projectID, project.Status, len(accepted))
	}
	if assigned {
		if project.AssignedFreelancerID == nil || *project.AssignedFreelancerID != accepted[0].FreelancerID {
			return fmt.Errorf("project %s assigned freelancer does not match accepted application", projectID)
		}
	}
	return nil
}
