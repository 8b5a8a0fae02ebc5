package database

import (
	"testing"
	"time"

	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCreate(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")

	project := &models.Project{
		ClientID:       client.ID,
		Title:          "CLI tool",
		Description:    "Build a CLI tool",
		RequiredSkills: []string{" Go ", "go", "SQL"},
		BudgetMin:      100,
		BudgetMax:      500,
	}
	require.NoError(t, db.ProjectRepo().Create(project))

	assert.NotEqual(t, uuid.Nil, project.ID)
	assert.Equal(t, models.ProjectOpen, project.Status)
	assert.Equal(t, []string{"go", "sql"}, project.RequiredSkills)
}

func TestProjectCreate_Validation(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")

	err := db.ProjectRepo().Create(&models.Project{ClientID: client.ID, Description: "no title", BudgetMax: 10})
	assert.True(t, errs.IsValidation(err))

	err = db.ProjectRepo().Create(&models.Project{
		ClientID:    client.ID,
		Title:       "Inverted budget",
		Description: "min above max",
		BudgetMin:   500,
		BudgetMax:   100,
	})
	assert.True(t, errs.IsValidation(err))
}

func TestProjectUpdate(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	project := seedProject(t, db, client, "Original title")

	newTitle := "Renamed project"
	newMax := 5000.0
	updated, err := db.ProjectRepo().Update(project.ID, ProjectPatch{Title: &newTitle, BudgetMax: &newMax}, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed project", updated.Title)
	assert.Equal(t, 5000.0, updated.BudgetMax)
	assert.Equal(t, models.ProjectOpen, updated.Status)
}

func TestProjectUpdate_Forbidden(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	other := seedUser(t, db, models.RoleClient, "other@example.com")
	project := seedProject(t, db, client, "Not yours")

	title := "Hijacked"
	_, err := db.ProjectRepo().Update(project.ID, ProjectPatch{Title: &title}, other.ID)
	assert.True(t, errs.IsForbidden(err))
}

func TestProjectUpdate_NotOpen(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	freelancer := seedUser(t, db, models.RoleFreelancer, "dev@example.com")
	project := seedProject(t, db, client, "Soon assigned")

	app, _, err := db.ApplicationRepo().Submit(project.ID, freelancer.ID, ApplicationInput{ProposedRate: 45})
	require.NoError(t, err)
	_, err = db.ApplicationRepo().Decide(project.ID, app.ID, models.ApplicationAccepted, client.ID)
	require.NoError(t, err)

	// General edits are rejected once the project left open
	title := "Too late"
	_, err = db.ProjectRepo().Update(project.ID, ProjectPatch{Title: &title}, client.ID)
	assert.True(t, errs.IsConflict(err))

	// But a cancel-only patch still works from assigned
	cancelled := models.ProjectCancelled
	updated, err := db.ProjectRepo().Update(project.ID, ProjectPatch{Status: &cancelled}, client.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCancelled, updated.Status)

	// And cancelled is terminal
	_, err = db.ProjectRepo().Update(project.ID, ProjectPatch{Status: &cancelled}, client.ID)
	assert.True(t, errs.IsConflict(err))
}

func TestProjectUpdate_CannotAssignByPatch(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	project := seedProject(t, db, client, "No shortcuts")

	assigned := models.ProjectAssigned
	_, err := db.ProjectRepo().Update(project.ID, ProjectPatch{Status: &assigned}, client.ID)
	assert.True(t, errs.IsValidation(err))
}

func TestProjectDelete(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	other := seedUser(t, db, models.RoleClient, "other@example.com")
	freelancer := seedUser(t, db, models.RoleFreelancer, "dev@example.com")
	project := seedProject(t, db, client, "Short lived")

	err := db.ProjectRepo().Delete(project.ID, other.ID)
	assert.True(t, errs.IsForbidden(err))

	_, _, err = db.ApplicationRepo().Submit(project.ID, freelancer.ID, ApplicationInput{ProposedRate: 45})
	require.NoError(t, err)

	err = db.ProjectRepo().Delete(project.ID, client.ID)
	assert.True(t, errs.IsConflict(err))
	assert.Contains(t, err.Error(), "has applications")

	empty := seedProject(t, db, client, "Actually deletable")
	require.NoError(t, db.ProjectRepo().Delete(empty.ID, client.ID))

	_, err = db.ProjectRepo().FindByID(empty.ID, false)
	assert.True(t, errs.IsNotFound(err))
}

func TestListFiltered(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")

	seedProject(t, db, client, "Web shop", "go", "react") // budget 1000-2000
	require.NoError(t, db.ProjectRepo().Create(&models.Project{
		ClientID:       client.ID,
		Title:          "Data pipeline",
		Description:    "Streaming ETL work",
		RequiredSkills: []string{"python", "kafka"},
		BudgetMin:      4000,
		BudgetMax:      8000,
	}))
	cancelled := models.ProjectCancelled
	doomed := seedProject(t, db, client, "Cancelled gig", "go")
	_, err := db.ProjectRepo().Update(doomed.ID, ProjectPatch{Status: &cancelled}, client.ID)
	require.NoError(t, err)

	open := models.ProjectOpen

	// Status equality
	projects, pageInfo, err := db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open}, PageRequest{})
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	assert.Equal(t, int64(2), pageInfo.Total)

	// Budget range overlap
	min := 3000.0
	projects, _, err = db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open, BudgetMin: &min}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Data pipeline", projects[0].Title)

	// Text search over title and description
	projects, _, err = db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open, Search: "etl"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Data pipeline", projects[0].Title)

	// Skill intersection: any overlap qualifies
	projects, _, err = db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open, Skills: []string{"react", "rust"}}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Web shop", projects[0].Title)

	// Sorting
	projects, _, err = db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open, SortBy: "budget_min", SortDesc: true}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Data pipeline", projects[0].Title)
}

func TestListFiltered_Pagination(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	for i := 0; i < 5; i++ {
		seedProject(t, db, client, "Project "+string(rune('A'+i)))
	}

	open := models.ProjectOpen
	projects, pageInfo, err := db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open}, PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	assert.Equal(t, PageInfo{Page: 2, Limit: 2, Total: 5, Pages: 3}, pageInfo)

	// Past the last page
	projects, pageInfo, err = db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open}, PageRequest{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.Equal(t, 3, pageInfo.Pages)
}

func TestRecommendedForSkills(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	seedProject(t, db, client, "Go service", "go")
	seedProject(t, db, client, "Rust rewrite", "rust")
	seedProject(t, db, client, "Design pass", "figma")

	// With declared skills: any overlap qualifies
	projects, _, err := db.ProjectRepo().RecommendedForSkills([]string{"go", "figma"}, PageRequest{})
	require.NoError(t, err)
	titles := make([]string, 0, len(projects))
	for _, p := range projects {
		titles = append(titles, p.Title)
	}
	assert.ElementsMatch(t, []string{"Go service", "Design pass"}, titles)

	// Without declared skills: identical to the plain open listing
	recommended, _, err := db.ProjectRepo().RecommendedForSkills(nil, PageRequest{})
	require.NoError(t, err)
	open := models.ProjectOpen
	listed, _, err := db.ProjectRepo().ListFiltered(ProjectFilters{Status: &open}, PageRequest{})
	require.NoError(t, err)
	require.Equal(t, len(listed), len(recommended))
	for i := range listed {
		assert.Equal(t, listed[i].ID, recommended[i].ID)
	}
}

func TestFindByID_ApplicationsInArrivalOrder(t *testing.T) {
	db := newTestDB(t)
	client := seedUser(t, db, models.RoleClient, "client@example.com")
	f1 := seedUser(t, db, models.RoleFreelancer, "f1@example.com")
	f2 := seedUser(t, db, models.RoleFreelancer, "f2@example.com")
	project := seedProject(t, db, client, "Ordered gig")

	first, _, err := db.ApplicationRepo().Submit(project.ID, f1.ID, ApplicationInput{ProposedRate: 45})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, _, err := db.ApplicationRepo().Submit(project.ID, f2.ID, ApplicationInput{ProposedRate: 60})
	require.NoError(t, err)

	stored, err := db.ProjectRepo().FindByID(project.ID, true)
	require.NoError(t, err)
	require.Len(t, stored.Applications, 2)
	assert.Equal(t, first.ID, stored.Applications[0].ID)
	assert.Equal(t, second.ID, stored.Applications[1].ID)

	// Without the flag the embedded list stays empty
	bare, err := db.ProjectRepo().FindByID(project.ID, false)
	require.NoError(t, err)
	assert.Empty(t, bare.Applications)
}
