package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationStatus is the lifecycle state of an application. Accepted and
// rejected are terminal.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// Application is a freelancer's bid on a project. It has no lifecycle of its
// own outside the owning project. The unique index on
// (project_id, freelancer_id) backstops the no-duplicate-application rule at
// the storage layer.
type Application struct {
	ID                uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID         uuid.UUID         `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_freelancer,priority:1"`
	FreelancerID      uuid.UUID         `json:"freelancer_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_applications_project_freelancer,priority:2"`
	CoverLetter       string            `json:"cover_letter" gorm:"type:text"`
	ProposedRate      float64           `json:"proposed_rate" gorm:"not null"`
	EstimatedDuration string            `json:"estimated_duration" gorm:"type:text"`
	AppliedAt         time.Time         `json:"applied_at" gorm:"not null;index"`
	Status            ApplicationStatus `json:"status" gorm:"type:text;not null"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = ApplicationPending
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}
	return nil
}
