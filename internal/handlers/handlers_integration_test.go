package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studentrecords/internal/database"
	"studentrecords/internal/export"
	"studentrecords/internal/handlers"
	"studentrecords/internal/logger"
	"studentrecords/internal/middleware"
	"studentrecords/internal/repositories"
	"studentrecords/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const testJWTSecret = "test_jwt_secret"

// setupApp builds a Fiber app backed by a throwaway SQLite file.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := database.OpenGORM(sqlite.Open(filepath.Join(t.TempDir(), "students.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	studentService := services.NewStudentService(repositories.NewGORMStudentRepository(db), nil, services.ListingConfig{DefaultLimit: 10, MaxLimit: 100})
	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), testJWTSecret, time.Hour)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	api := app.Group("/api")
	api.Get("/health", handlers.HandleHealth)
	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewStudentHandler(studentService, export.New(time.UTC)).RegisterRoutes(api, middleware.AuthRequired(authService))
	return app
}

// TestMain silences logging for cleaner test output
func TestMain(m *testing.M) {
	logger.Configure(logger.Config{Level: "disabled"})
	os.Exit(m.Run())
}

type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Message    string              `json:"message"`
	Errors     []map[string]string `json:"errors"`
	Pagination map[string]float64  `json:"pagination"`
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	resp := doRequest(t, app, method, path, token, body)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func dataMap(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func dataList(t *testing.T, env envelope) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func registerAndLogin(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, env := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Admin User",
		"email":    "admin@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	status, env = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	token, _ := dataMap(t, env)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createStudent(t *testing.T, app *fiber.App, token string, body map[string]string) map[string]interface{} {
	t.Helper()
	status, env := doJSON(t, app, http.MethodPost, "/api/students", token, body)
	require.Equal(t, fiber.StatusCreated, status, "%s %v", env.Message, env.Errors)
	return dataMap(t, env)
}

func studentBody(first, email string) map[string]string {
	return map[string]string{
		"firstName": first,
		"lastName":  "Doe",
		"email":     email,
		"gender":    "Female",
	}
}

func TestAuthRegisterLoginAndMe(t *testing.T) {
	app := setupApp(t)
	token := registerAndLogin(t, app)

	status, env := doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	me := dataMap(t, env)
	assert.Equal(t, "admin@example.com", me["email"])
	assert.NotContains(t, me, "password")

	// Duplicate registration
	status, env = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Admin Again", "email": "ADMIN@example.com", "password": "password123",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "User already exists", env.Message)

	// Invalid registration body
	status, env = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, env.Errors)

	// Wrong password and unknown user look the same
	status, env = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "nope123"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Message)
	status, env = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "nope123"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Message)

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, env = doJSON(t, app, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Not authorized, token failed", env.Message)
}

func TestStudentsRequireAuthentication(t *testing.T) {
	app := setupApp(t)

	// Unknown paths under /api are not behind the token check
	status, env := doJSON(t, app, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)

	for _, path := range []string{"/api/students", "/api/students/export/csv", "/api/students/some-id"} {
		status, env = doJSON(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		assert.False(t, env.Success)
	}
}

func TestStudentLifecycle(t *testing.T) {
	app := setupApp(t)
	token := registerAndLogin(t, app)

	body := studentBody("Jane", "Jane@Example.com")
	body["phoneNumber"] = "5551234567"
	body["birthdate"] = "2001-05-17"
	status, env := doJSON(t, app, http.MethodPost, "/api/students", token, body)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Student created successfully", env.Message)
	student := dataMap(t, env)
	id, _ := student["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "jane@example.com", student["email"])
	assert.Equal(t, false, student["isDeleted"])
	assert.NotContains(t, student, "deletedAt")

	// Duplicate email
	status, env = doJSON(t, app, http.MethodPost, "/api/students", token, studentBody("Janet", "jane@example.com"))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Email already exists", env.Message)

	// Field validation
	status, env = doJSON(t, app, http.MethodPost, "/api/students", token, map[string]string{
		"firstName": "J", "lastName": "Doe", "email": "bad", "gender": "Unknown",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, map[string]string{"path": "firstName", "message": "First name must be at least 2 characters"})
	assert.Contains(t, env.Errors, map[string]string{"path": "email", "message": "Please provide a valid email"})
	assert.Contains(t, env.Errors, map[string]string{"path": "gender", "message": "Gender must be Male, Female, or Other"})

	// Malformed body
	status, env = doJSON(t, app, http.MethodPost, "/api/students", token, "{not json")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", env.Message)

	// Fetch
	status, env = doJSON(t, app, http.MethodGet, "/api/students/"+id, token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "5551234567", dataMap(t, env)["phoneNumber"])

	status, env = doJSON(t, app, http.MethodGet, "/api/students/does-not-exist", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Student not found", env.Message)

	// Partial update
	status, env = doJSON(t, app, http.MethodPut, "/api/students/"+id, token, map[string]string{"lastName": "Smith", "phoneNumber": ""})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Student updated successfully", env.Message)
	updated := dataMap(t, env)
	assert.Equal(t, "Smith", updated["lastName"])
	assert.Equal(t, "Jane", updated["firstName"])
	assert.NotContains(t, updated, "phoneNumber")

	status, env = doJSON(t, app, http.MethodPut, "/api/students/"+id, token, map[string]string{"phoneNumber": "12ab"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Errors, map[string]string{"path": "phoneNumber", "message": "Please provide a valid phone number"})

	status, _ = doJSON(t, app, http.MethodPut, "/api/students/does-not-exist", token, map[string]string{"lastName": "Smith"})
	assert.Equal(t, fiber.StatusNotFound, status)

	// Soft delete
	status, env = doJSON(t, app, http.MethodDelete, "/api/students/"+id, token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Student deleted successfully", env.Message)

	status, env = doJSON(t, app, http.MethodGet, "/api/students", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, dataList(t, env))
	assert.Equal(t, float64(0), env.Pagination["total"])

	status, env = doJSON(t, app, http.MethodGet, "/api/students?showDeleted=true", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	listed := dataList(t, env)
	require.Len(t, listed, 1)
	assert.Equal(t, true, listed[0]["isDeleted"])
	assert.NotEmpty(t, listed[0]["deletedAt"])

	status, env = doJSON(t, app, http.MethodGet, "/api/students/"+id, token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, dataMap(t, env)["isDeleted"])

	// Repeated delete still succeeds
	status, _ = doJSON(t, app, http.MethodDelete, "/api/students/"+id, token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	// Restore
	status, env = doJSON(t, app, http.MethodPut, "/api/students/"+id+"/restore", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Student restored successfully", env.Message)
	restored := dataMap(t, env)
	assert.Equal(t, false, restored["isDeleted"])
	assert.NotContains(t, restored, "deletedAt")

	// Permanent delete
	status, env = doJSON(t, app, http.MethodDelete, "/api/students/"+id+"/permanent", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Student permanently deleted", env.Message)

	status, _ = doJSON(t, app, http.MethodGet, "/api/students/"+id, token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = doJSON(t, app, http.MethodDelete, "/api/students/"+id+"/permanent", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = doJSON(t, app, http.MethodPut, "/api/students/"+id+"/restore", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestListStudentsPaginationAndSearch(t *testing.T) {
	app := setupApp(t)
	token := registerAndLogin(t, app)

	for i := 0; i < 12; i++ {
		createStudent(t, app, token, studentBody(fmt.Sprintf("Student%02d", i), fmt.Sprintf("student%02d@example.com", i)))
	}
	createStudent(t, app, token, map[string]string{
		"firstName": "Zed", "lastName": "Unique", "email": "zed@campus.edu", "gender": "Other",
	})

	status, env := doJSON(t, app, http.MethodGet, "/api/students?page=2&limit=5", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, dataList(t, env), 5)
	assert.Equal(t, map[string]float64{"page": 2, "limit": 5, "total": 13, "pages": 3}, env.Pagination)

	// Bad values fall back to defaults
	status, env = doJSON(t, app, http.MethodGet, "/api/students?page=abc&limit=-3", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), env.Pagination["page"])
	assert.Equal(t, float64(10), env.Pagination["limit"])
	assert.Len(t, dataList(t, env), 10)

	status, env = doJSON(t, app, http.MethodGet, "/api/students?page=1844674407370955162&limit=10", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, dataList(t, env))
	assert.Equal(t, float64(13), env.Pagination["total"])

	status, env = doJSON(t, app, http.MethodGet, "/api/students?limit=500", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(100), env.Pagination["limit"])

	status, env = doJSON(t, app, http.MethodGet, "/api/students?search=CAMPUS", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	found := dataList(t, env)
	require.Len(t, found, 1)
	assert.Equal(t, "Zed", found[0]["firstName"])

	status, env = doJSON(t, app, http.MethodGet, "/api/students?search=%25", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, dataList(t, env))
	assert.Equal(t, float64(0), env.Pagination["pages"])
}

func TestExports(t *testing.T) {
	app := setupApp(t)
	token := registerAndLogin(t, app)

	status, env := doJSON(t, app, http.MethodGet, "/api/students/export/csv", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "No students found to export", env.Message)
	status, _ = doJSON(t, app, http.MethodGet, "/api/students/export/pdf", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	jane := createStudent(t, app, token, studentBody("Jane", "jane@example.com"))
	createStudent(t, app, token, studentBody("John", "john@example.com"))
	status, _ = doJSON(t, app, http.MethodDelete, "/api/students/"+jane["id"].(string), token, nil)
	require.Equal(t, fiber.StatusOK, status)

	resp := doRequest(t, app, http.MethodGet, "/api/students/export/csv", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "students.csv")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,First Name,Last Name,Email"))
	assert.Contains(t, lines[1], "john@example.com")

	resp = doRequest(t, app, http.MethodGet, "/api/students/export/csv?showDeleted=true", token, nil)
	raw, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3)
	assert.Contains(t, string(raw), ",Deleted,")

	resp = doRequest(t, app, http.MethodGet, "/api/students/export/pdf?showDeleted=true", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "students.pdf")
	raw, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}
