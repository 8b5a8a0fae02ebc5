package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectOpen      ProjectStatus = "open"
	ProjectAssigned  ProjectStatus = "assigned"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectOpen, ProjectAssigned, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transitions are permitted.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

// Project is a posted work item together with its applications. The project
// row is the atomicity boundary: every mutation of the project or of its
// applications happens inside a transaction holding the project row.
type Project struct {
	ID                   uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID             uuid.UUID     `json:"client_id" gorm:"type:uuid;not null;index"`
	Title                string        `json:"title" gorm:"type:text;not null"`
	Description          string        `json:"description" gorm:"type:text;not null"`
	RequiredSkills       []string      `json:"required_skills" gorm:"serializer:json"`
	BudgetMin            float64       `json:"budget_min" gorm:"not null"`
	BudgetMax            float64       `json:"budget_max" gorm:"not null"`
	Deadline             time.Time     `json:"deadline"`
	Status               ProjectStatus `json:"status" gorm:"type:text;not null;index"`
	AssignedFreelancerID *uuid.UUID    `json:"assigned_freelancer_id,omitempty" gorm:"type:uuid"`
	Applications         []Application `json:"applications,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProjectOpen
	}
	return nil
}

// ApplicationFrom returns the project's application from the given
// freelancer, or nil. Applications must be loaded.
func (p *Project) ApplicationFrom(freelancerID uuid.UUID) *Application {
	for i := range p.Applications {
		if p.Applications[i].FreelancerID == freelancerID {
			return &p.Applications[i]
		}
	}
	return nil
}
