package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// ProjectFilters narrows a project listing. Nil/zero fields are ignored.
type ProjectFilters struct {
	Status    *models.ProjectStatus
	Skills    []string // any overlap with required_skills qualifies
	BudgetMin *float64 // listing overlaps [BudgetMin, BudgetMax]
	BudgetMax *float64
	Search    string // case-insensitive over title and description
	SortBy    string
	SortDesc  bool
}

// ProjectPatch is a partial owner update. Nil fields are left untouched.
type ProjectPatch struct {
	Title          *string               `json:"title"`
	Description    *string               `json:"description"`
	RequiredSkills *[]string             `json:"required_skills"`
	BudgetMin      *float64              `json:"budget_min"`
	BudgetMax      *float64              `json:"budget_max"`
	Deadline       *time.Time            `json:"deadline"`
	Status         *models.ProjectStatus `json:"status"`
}

var projectSortColumns = map[string]string{
	"created_at": "created_at",
	"deadline":   "deadline",
	"budget_min": "budget_min",
	"budget_max": "budget_max",
	"title":      "title",
}

// Create validates and inserts a new project. The caller is responsible for
// ensuring the principal is a client.
func (r *ProjectRepo) Create(project *models.Project) error {
	project.RequiredSkills = models.NormalizeSkills(project.RequiredSkills)
	if err := models.ValidateProject(project); err != nil {
		return err
	}
	if err := r.db.Create(project).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

// FindByID returns a project, optionally with its applications in arrival order.
func (r *ProjectRepo) FindByID(id uuid.UUID, includeApplications bool) (*models.Project, error) {
	q := r.db
	if includeApplications {
		q = q.Preload("Applications", func(db *gorm.DB) *gorm.DB {
			return db.Order("applied_at ASC")
		})
	}
	var project models.Project
	if err := q.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError("project not found")
		}
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// Update applies an owner patch. General edits are only legal while the
// project is open; the one exception is a patch that does nothing but cancel,
// which is legal from any non-terminal state. Assignment can never be set by
// patch, only by an application decision.
func (r *ProjectRepo) Update(id uuid.UUID, patch ProjectPatch, callerID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&project, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFoundError("project not found")
			}
			return err
		}
		if project.ClientID != callerID {
			return errs.NewForbiddenError("only the project owner can update it")
		}

		if patch.cancelOnly() {
			if project.Status.Terminal() {
				return errs.NewConflictError("project already closed")
			}
			project.Status = models.ProjectCancelled
			return tx.Save(&project).Error
		}

		if project.Status != models.ProjectOpen {
			return errs.NewConflictError("project not open")
		}
		if patch.Title != nil {
			project.Title = *patch.Title
		}
		if patch.Description != nil {
			project.Description = *patch.Description
		}
		if patch.RequiredSkills != nil {
			project.RequiredSkills = models.NormalizeSkills(*patch.RequiredSkills)
		}
		if patch.BudgetMin != nil {
			project.BudgetMin = *patch.BudgetMin
		}
		if patch.BudgetMax != nil {
			project.BudgetMax = *patch.BudgetMax
		}
		if patch.Deadline != nil {
			project.Deadline = *patch.Deadline
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return errs.NewInvalidFieldError("status", "unknown project status")
			}
			if *patch.Status == models.ProjectAssigned {
				return errs.NewInvalidFieldError("status", "assignment happens through an application decision")
			}
			project.Status = *patch.Status
		}
		if err := models.ValidateProject(&project); err != nil {
			return err
		}
		return tx.Save(&project).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("update", "project", err)
	}
	return &project, nil
}

func (p ProjectPatch) cancelOnly() bool {
	return p.Status != nil && *p.Status == models.ProjectCancelled &&
		p.Title == nil && p.Description == nil && p.RequiredSkills == nil &&
		p.BudgetMin == nil && p.BudgetMax == nil && p.Deadline == nil
}

// Delete removes an owner's project. Projects with applications can not be
// deleted.
func (r *ProjectRepo) Delete(id uuid.UUID, callerID uuid.UUID) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := lockForUpdate(tx).First(&project, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFoundError("project not found")
			}
			return err
		}
		if project.ClientID != callerID {
			return errs.NewForbiddenError("only the project owner can delete it")
		}
		var count int64
		if err := tx.Model(&models.Application{}).Where("project_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errs.NewConflictError("project has applications")
		}
		return tx.Delete(&models.Project{}, "id = ?", id).Error
	})
	if err != nil {
		return errs.NewDatabaseError("delete", "project", err)
	}
	return nil
}

// ListFiltered returns a filtered, sorted page of projects. When a skills
// filter is present the candidate rows are narrowed in SQL and the exact set
// intersection is applied in memory before paginating, since skills live in a
// serialized JSON column.
func (r *ProjectRepo) ListFiltered(filters ProjectFilters, page PageRequest) ([]models.Project, PageInfo, error) {
	page = page.normalize()

	q := r.db.Model(&models.Project{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.BudgetMin != nil {
		q = q.Where("budget_max >= ?", *filters.BudgetMin)
	}
	if filters.BudgetMax != nil {
		q = q.Where("budget_min <= ?", *filters.BudgetMax)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		needle := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", needle, needle)
	}
	q = q.Order(orderClause(filters))

	skills := models.NormalizeSkills(filters.Skills)
	if len(skills) > 0 {
		return r.listBySkills(q, skills, page)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("count", "projects", err)
	}
	var projects []models.Project
	if err := q.Offset(page.offset()).Limit(page.Limit).Find(&projects).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, newPageInfo(page, total), nil
}

func (r *ProjectRepo) listBySkills(q *gorm.DB, skills []string, page PageRequest) ([]models.Project, PageInfo, error) {
	// Coarse SQL narrowing on the JSON column, then an exact check in Go.
	likes := make([]string, 0, len(skills))
	args := make([]interface{}, 0, len(skills))
	for _, s := range skills {
		likes = append(likes, "LOWER(required_skills) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	q = q.Where(strings.Join(likes, " OR "), args...)

	var candidates []models.Project
	if err := q.Find(&candidates).Error; err != nil {
		return nil, PageInfo{}, errs.NewDatabaseError("list", "projects", err)
	}

	matched := candidates[:0]
	for _, p := range candidates {
		if models.SkillsIntersect(p.RequiredSkills, skills) {
			matched = append(matched, p)
		}
	}

	total := int64(len(matched))
	start := page.offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], newPageInfo(page, total), nil
}

// RecommendedForSkills lists open projects whose required skills overlap the
// given set. An empty skill set means no narrowing at all.
func (r *ProjectRepo) RecommendedForSkills(skills []string, page PageRequest) ([]models.Project, PageInfo, error) {
	open := models.ProjectOpen
	filters := ProjectFilters{Status: &open}
	if len(skills) > 0 {
		filters.Skills = skills
	}
	return r.ListFiltered(filters, page)
}

func orderClause(filters ProjectFilters) string {
	column, ok := projectSortColumns[filters.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filters.SortDesc || filters.SortBy == "" {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, id", column, direction)
}
