package database

import (
	"errors"

	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

// Add inserts a new user into the database
func (r *UserRepo) Add(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return errs.NewDatabaseError("create", "user", err)
	}
	return nil
}

// FindByID returns a user by its ID
func (r *UserRepo) FindByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError("user not found")
		}
		return nil, errs.NewDatabaseError("find", "user", err)
	}
	return &user, nil
}

// FindByEmail returns a user by email address
func (r *UserRepo) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError("user not found")
		}
		return nil, errs.NewDatabaseError("find", "user", err)
	}
	return &user, nil
}

// UpdateSkills replaces a user's declared skill set
func (r *UserRepo) UpdateSkills(id uuid.UUID, skills []string) (*models.User, error) {
	user, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	user.Skills = models.NormalizeSkills(skills)
	if err := r.db.Model(user).Update("skills", user.Skills).Error; err != nil {
		return nil, errs.NewDatabaseError("update", "user", err)
	}
	return user, nil
}
