package database

import (
	"testing"
	"time"

	"github.com/freelancehub/backend/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test. A single
// connection keeps every query on the same in-memory instance.
func newTestDB(t *testing.T) Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return New(db)
}

func seedUser(t *testing.T, db Database, role models.Role, email string, skills ...string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		DisplayName:  email,
		PasswordHash: "x",
		Role:         role,
		Skills:       models.NormalizeSkills(skills),
	}
	require.NoError(t, db.UserRepo().Add(user))
	return user
}

func seedProject(t *testing.T, db Database, client *models.User, title string, skills ...string) *models.Project {
	t.Helper()
	project := &models.Project{
		ClientID:       client.ID,
		Title:          title,
		Description:    "description of " + title,
		RequiredSkills: skills,
		BudgetMin:      1000,
		BudgetMax:      2000,
		Deadline:       time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, db.ProjectRepo().Create(project))
	return project
}
