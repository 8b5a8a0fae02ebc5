package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/models"
	"github.com/freelancehub/backend/services/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(gormDB))

	db := database.New(gormDB)
	notifier := notify.New(db.UserRepo())
	notifier.Start()
	t.Cleanup(notifier.Close)

	return newRouter(db, notifier, withConfig(map[string]string{"JWT_SECRET": "test-secret"}))
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, handler http.Handler, role, email string, skills ...string) (string, *models.User) {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/auth/register", "", registerRequest{
		Email:       email,
		Password:    "password123",
		DisplayName: email,
		Role:        role,
		Skills:      skills,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	resp := decodeBody[authResponse](t, recorder)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func createProject(t *testing.T, handler http.Handler, token, title string, skills ...string) *models.Project {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/projects", token, createProjectRequest{
		Title:          title,
		Description:    "description of " + title,
		RequiredSkills: skills,
		BudgetMin:      1000,
		BudgetMax:      2000,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	project := decodeBody[*models.Project](t, recorder)
	return project
}

func TestAPI_FullLifecycle(t *testing.T) {
	handler := newTestAPI(t)

	clientToken, _ := registerUser(t, handler, "client", "client@example.com")
	f1Token, f1 := registerUser(t, handler, "freelancer", "f1@example.com")
	f2Token, _ := registerUser(t, handler, "freelancer", "f2@example.com")

	project := createProject(t, handler, clientToken, "Marketplace build")
	assert.Equal(t, models.ProjectOpen, project.Status)

	applyPath := fmt.Sprintf("/projects/%s/applications", project.ID)

	recorder := doJSON(t, handler, http.MethodPost, applyPath, f1Token, database.ApplicationInput{ProposedRate: 45})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	appF1 := decodeBody[*models.Application](t, recorder)
	assert.Equal(t, models.ApplicationPending, appF1.Status)

	recorder = doJSON(t, handler, http.MethodPost, applyPath, f2Token, database.ApplicationInput{ProposedRate: 60})
	require.Equal(t, http.StatusCreated, recorder.Code)

	// Duplicate application is a conflict
	recorder = doJSON(t, handler, http.MethodPost, applyPath, f1Token, database.ApplicationInput{ProposedRate: 50})
	assert.Equal(t, http.StatusConflict, recorder.Code)

	// The owner sees both applications
	recorder = doJSON(t, handler, http.MethodGet, applyPath, clientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listing := decodeBody[ApplicationCollection](t, recorder)
	assert.Len(t, listing.Applications, 2)
	assert.Equal(t, int64(2), listing.Pagination.Total)

	// Accepting one application forecloses the other and assigns the project
	decidePath := fmt.Sprintf("/projects/%s/applications/%s/decision", project.ID, appF1.ID)
	recorder = doJSON(t, handler, http.MethodPost, decidePath, clientToken, decisionRequest{Decision: "accepted"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	result := decodeBody[database.DecisionResult](t, recorder)
	assert.Equal(t, models.ApplicationAccepted, result.Application.Status)
	assert.Equal(t, models.ProjectAssigned, result.Project.Status)
	require.NotNil(t, result.Project.AssignedFreelancerID)
	assert.Equal(t, f1.ID, *result.Project.AssignedFreelancerID)

	// Deciding again hits a terminal state
	recorder = doJSON(t, handler, http.MethodPost, decidePath, clientToken, decisionRequest{Decision: "rejected"})
	assert.Equal(t, http.StatusConflict, recorder.Code)

	// The public listing defaults to open projects, which excludes this one now
	recorder = doJSON(t, handler, http.MethodGet, "/projects", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	projects := decodeBody[ProjectCollection](t, recorder)
	assert.Empty(t, projects.Projects)

	// The auto-rejected freelancer sees the outcome in their fan-out view
	recorder = doJSON(t, handler, http.MethodGet, "/users/me/applications", f2Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	mine := decodeBody[ApplicationViewCollection](t, recorder)
	require.Len(t, mine.Applications, 1)
	assert.Equal(t, models.ApplicationRejected, mine.Applications[0].Status)
	assert.Equal(t, "Marketplace build", mine.Applications[0].Project.Title)
	assert.Equal(t, "client@example.com", mine.Applications[0].Project.ClientName)
}

func TestAPI_RoleEnforcement(t *testing.T) {
	handler := newTestAPI(t)

	clientToken, _ := registerUser(t, handler, "client", "client@example.com")
	freelancerToken, _ := registerUser(t, handler, "freelancer", "dev@example.com")

	// Only clients post projects
	recorder := doJSON(t, handler, http.MethodPost, "/projects", freelancerToken, createProjectRequest{
		Title: "Nope", Description: "nope", BudgetMax: 10,
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Anonymous callers cannot post at all
	recorder = doJSON(t, handler, http.MethodPost, "/projects", "", createProjectRequest{
		Title: "Nope", Description: "nope", BudgetMax: 10,
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Only freelancers apply
	project := createProject(t, handler, clientToken, "Real project")
	recorder = doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/projects/%s/applications", project.ID), clientToken,
		database.ApplicationInput{ProposedRate: 10})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Non-owners cannot update or delete
	otherToken, _ := registerUser(t, handler, "client", "other@example.com")
	recorder = doJSON(t, handler, http.MethodPut,
		fmt.Sprintf("/projects/%s", project.ID), otherToken,
		map[string]string{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	recorder = doJSON(t, handler, http.MethodDelete,
		fmt.Sprintf("/projects/%s", project.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAPI_DeleteGuard(t *testing.T) {
	handler := newTestAPI(t)

	clientToken, _ := registerUser(t, handler, "client", "client@example.com")
	freelancerToken, _ := registerUser(t, handler, "freelancer", "dev@example.com")

	project := createProject(t, handler, clientToken, "Sticky project")
	recorder := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/projects/%s/applications", project.ID), freelancerToken,
		database.ApplicationInput{ProposedRate: 10})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/projects/%s", project.ID), clientToken, nil)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	empty := createProject(t, handler, clientToken, "Disposable project")
	recorder = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/projects/%s", empty.ID), clientToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/projects/%s", empty.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestAPI_Recommended(t *testing.T) {
	handler := newTestAPI(t)

	clientToken, _ := registerUser(t, handler, "client", "client@example.com")
	createProject(t, handler, clientToken, "Go service", "go")
	createProject(t, handler, clientToken, "Design pass", "figma")

	// A freelancer with no declared skills gets the plain open listing
	blankToken, _ := registerUser(t, handler, "freelancer", "blank@example.com")
	recorder := doJSON(t, handler, http.MethodGet, "/projects/recommended", blankToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	recommended := decodeBody[ProjectCollection](t, recorder)
	assert.Len(t, recommended.Projects, 2)

	// Declared skills narrow the listing to overlapping projects
	skilledToken, _ := registerUser(t, handler, "freelancer", "gopher@example.com", "go")
	recorder = doJSON(t, handler, http.MethodGet, "/projects/recommended", skilledToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	recommended = decodeBody[ProjectCollection](t, recorder)
	require.Len(t, recommended.Projects, 1)
	assert.Equal(t, "Go service", recommended.Projects[0].Title)

	// Skills can be updated and take effect immediately
	recorder = doJSON(t, handler, http.MethodPut, "/users/me/skills", skilledToken,
		updateSkillsRequest{Skills: []string{"figma"}})
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = doJSON(t, handler, http.MethodGet, "/projects/recommended", skilledToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	recommended = decodeBody[ProjectCollection](t, recorder)
	require.Len(t, recommended.Projects, 1)
	assert.Equal(t, "Design pass", recommended.Projects[0].Title)

	// Clients have no recommendation feed
	recorder = doJSON(t, handler, http.MethodGet, "/projects/recommended", clientToken, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAPI_OwnerOnlyApplicationEmbedding(t *testing.T) {
	handler := newTestAPI(t)

	clientToken, _ := registerUser(t, handler, "client", "client@example.com")
	freelancerToken, _ := registerUser(t, handler, "freelancer", "dev@example.com")

	project := createProject(t, handler, clientToken, "Guarded project")
	recorder := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/projects/%s/applications", project.ID), freelancerToken,
		database.ApplicationInput{ProposedRate: 10})
	require.Equal(t, http.StatusCreated, recorder.Code)

	path := fmt.Sprintf("/projects/%s?include_applications=true", project.ID)

	recorder = doJSON(t, handler, http.MethodGet, path, clientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	owned := decodeBody[*models.Project](t, recorder)
	assert.Len(t, owned.Applications, 1)

	recorder = doJSON(t, handler, http.MethodGet, path, freelancerToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	foreign := decodeBody[*models.Project](t, recorder)
	assert.Empty(t, foreign.Applications)
}

func TestAPI_ValidationErrors(t *testing.T) {
	handler := newTestAPI(t)

	clientToken, _ := registerUser(t, handler, "client", "client@example.com")

	recorder := doJSON(t, handler, http.MethodPost, "/projects", clientToken, createProjectRequest{
		Title:       "Inverted",
		Description: "budget min above max",
		BudgetMin:   500,
		BudgetMax:   100,
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doJSON(t, handler, http.MethodPost, "/auth/register", "", registerRequest{
		Email: "x@example.com", Password: "short", DisplayName: "x", Role: "freelancer",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doJSON(t, handler, http.MethodPost, "/auth/register", "", registerRequest{
		Email: "x@example.com", Password: "password123", DisplayName: "x", Role: "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAPI_Health(t *testing.T) {
	handler := newTestAPI(t)

	recorder := doJSON(t, handler, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody[map[string]string](t, recorder)
	assert.Equal(t, "ok", body["status"])
}
