package database

import (
	"github.com/freelancehub/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	userRepo        *UserRepo
	projectRepo     *ProjectRepo
	applicationRepo *ApplicationRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		userRepo:        NewUserRepo(db),
		projectRepo:     NewProjectRepo(db),
		applicationRepo: NewApplicationRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) ApplicationRepo() *ApplicationRepo {
	return d.applicationRepo
}

// Migrate creates or updates the schema for all marketplace entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Project{}, &models.Application{})
}

// lockForUpdate takes a row lock so concurrent mutators of the same project
// aggregate serialize against each other. sqlite has a single writer and
// does not speak FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
