package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of principal types resolved once at the auth
// boundary. Role-dependent branches compare against these constants, never
// against raw strings from the request.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleMentor     Role = "mentor"
	RoleAdmin      Role = "admin"
)

// ParseRole maps an external role string onto the closed Role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleFreelancer, RoleMentor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is an account on the platform. Clients post projects, freelancers
// apply to them. Skills are only meaningful for freelancers and feed the
// recommendation query.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"type:text;not null;uniqueIndex"`
	DisplayName  string    `json:"display_name" gorm:"type:text;not null"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	Role         Role      `json:"role" gorm:"type:text;not null"`
	Skills       []string  `json:"skills,omitempty" gorm:"serializer:json"`
	Phone        string    `json:"phone,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
