package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"journal/internal/database"
	"journal/internal/handlers"
	"journal/internal/middleware"
	"journal/internal/models"
	"journal/internal/repositories"
	"journal/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp builds the API on a fresh in-memory sqlite database. The returned
// entry service is exposed so tests can pin its clock.
func setupApp(t *testing.T) (*fiber.App, *services.EntryService) {
	t.Helper()

	db, err := database.Connect("sqlite", ":memory:")
	require.NoError(t, err, "failed to open in-memory database")

	userRepo := repositories.NewGORMUserRepository(db)
	entryRepo := repositories.NewGORMEntryRepository(db)

	authService := services.NewAuthService(userRepo, "test_jwt_secret", 24)
	entryService := services.NewEntryService(entryRepo, nil)

	authHandler := handlers.NewAuthHandler(authService)
	entryHandler := handlers.NewEntryHandler(entryService)

	app := fiber.New()

	api := app.Group("/api")
	authHandler.RegisterRoutes(api)

	protected := api.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protected)
	entryHandler.RegisterRoutes(protected)

	return app, entryService
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// registerUser registers a fresh account and returns its token and user id.
func registerUser(t *testing.T, app *fiber.App, email string) (string, uint) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResp struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		User        models.User `json:"user"`
	}
	decodeBody(t, resp, &registerResp)
	require.NotEmpty(t, registerResp.AccessToken)
	return registerResp.AccessToken, registerResp.User.ID
}

func TestAuthRegisterLoginAndMe(t *testing.T) {
	app, _ := setupApp(t)

	// Registration returns a bearer token and the profile.
	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResp map[string]interface{}
	decodeBody(t, resp, &registerResp)
	assert.Equal(t, "bearer", registerResp["token_type"])
	assert.NotEmpty(t, registerResp["access_token"])
	user, ok := registerResp["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"])
	// The password hash is never serialized.
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "PasswordHash")

	// Duplicate email
	resp = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice Again",
		"password": "otherpassword",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Login with the right password
	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]interface{}
	decodeBody(t, resp, &loginResp)
	token, _ := loginResp["access_token"].(string)
	assert.NotEmpty(t, token)

	// Login with the wrong password
	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// /me with the token
	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, "alice@example.com", me.Email)

	// /me without a token
	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// /me with garbage
	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestEntryLifecycle(t *testing.T) {
	app, _ := setupApp(t)
	token, userID := registerUser(t, app, "alice@example.com")

	// Create
	resp := doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
		"entry_type": "task",
		"content":    "water the plants",
		"entry_date": "2024-06-15",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Entry
	decodeBody(t, resp, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, userID, created.UserID)
	assert.Equal(t, "task", created.EntryType)
	assert.False(t, created.IsCompleted)
	require.NotNil(t, created.Content)
	assert.Equal(t, "water the plants", *created.Content)

	// Round-trip: listing by the exact date returns the entry.
	resp = doJSON(t, app, http.MethodGet, "/api/entries?entry_date=2024-06-15", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []models.Entry
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].ID)

	// Mood-only update leaves content and completion untouched.
	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/entries/%d", created.ID), token, map[string]interface{}{
		"mood": "calm",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Entry
	decodeBody(t, resp, &updated)
	require.NotNil(t, updated.Mood)
	assert.Equal(t, "calm", *updated.Mood)
	require.NotNil(t, updated.Content)
	assert.Equal(t, "water the plants", *updated.Content)
	assert.False(t, updated.IsCompleted)

	// Completing the task
	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/entries/%d", created.ID), token, map[string]interface{}{
		"is_completed": true,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &updated)
	assert.True(t, updated.IsCompleted)
	assert.Equal(t, "calm", *updated.Mood)

	// Delete
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/entries/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var deleteResp map[string]bool
	decodeBody(t, resp, &deleteResp)
	assert.True(t, deleteResp["ok"])

	// Gone
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/entries/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/entries", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &entries)
	assert.Empty(t, entries)
}

func TestEntryOwnerIsolation(t *testing.T) {
	app, _ := setupApp(t)
	aliceToken, _ := registerUser(t, app, "alice@example.com")
	bobToken, _ := registerUser(t, app, "bob@example.com")

	resp := doJSON(t, app, http.MethodPost, "/api/entries", aliceToken, map[string]interface{}{
		"entry_type": "text",
		"content":    "alice's secret",
		"entry_date": "2024-06-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var aliceEntry models.Entry
	decodeBody(t, resp, &aliceEntry)

	// Bob never sees it in a list...
	resp = doJSON(t, app, http.MethodGet, "/api/entries", bobToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []models.Entry
	decodeBody(t, resp, &entries)
	assert.Empty(t, entries)

	// ...and cannot update or delete it; the id reads as missing, not
	// as someone else's data.
	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/entries/%d", aliceEntry.ID), bobToken, map[string]interface{}{
		"content": "hijacked",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/entries/%d", aliceEntry.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Alice's entry is untouched.
	resp = doJSON(t, app, http.MethodGet, "/api/entries?entry_date=2024-06-15", aliceToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Content)
	assert.Equal(t, "alice's secret", *entries[0].Content)
}

func TestEntryRangeQuery(t *testing.T) {
	app, _ := setupApp(t)
	token, _ := registerUser(t, app, "alice@example.com")

	for _, date := range []string{"2024-05-31", "2024-06-01", "2024-06-30", "2024-07-01"} {
		resp := doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
			"entry_type": "text",
			"entry_date": date,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, app, http.MethodGet, "/api/entries/range?start=2024-06-01&end=2024-06-30", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []models.Entry
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-06-01", entries[0].EntryDate)
	assert.Equal(t, "2024-06-30", entries[1].EntryDate)

	// Inverted range yields an empty list.
	resp = doJSON(t, app, http.MethodGet, "/api/entries/range?start=2024-06-30&end=2024-06-01", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &entries)
	assert.Empty(t, entries)

	// Missing bounds are a validation error.
	resp = doJSON(t, app, http.MethodGet, "/api/entries/range?start=2024-06-01", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestEntryOnThisDay(t *testing.T) {
	app, entryService := setupApp(t)
	token, _ := registerUser(t, app, "alice@example.com")

	// Pin "today" to 2024-06-15.
	entryService.Now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	for _, date := range []string{"2022-06-15", "2023-06-15", "2024-06-15", "2023-07-15"} {
		resp := doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
			"entry_type": "text",
			"entry_date": date,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, app, http.MethodGet, "/api/entries/on-this-day", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []models.Entry
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "2023-06-15", entries[0].EntryDate)
	assert.Equal(t, "2022-06-15", entries[1].EntryDate)
}

func TestDatesWithEntries(t *testing.T) {
	app, _ := setupApp(t)
	token, _ := registerUser(t, app, "alice@example.com")

	// Two entries on one date, one on another.
	for _, date := range []string{"2024-06-01", "2024-06-01", "2024-06-20"} {
		resp := doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
			"entry_type": "gratitude",
			"entry_date": date,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, app, http.MethodGet, "/api/entries/dates-with-entries?month=6&year=2024", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var dates []string
	decodeBody(t, resp, &dates)
	assert.Equal(t, []string{"2024-06-01", "2024-06-20"}, dates)

	// Month out of range
	resp = doJSON(t, app, http.MethodGet, "/api/entries/dates-with-entries?month=13&year=2024", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Year missing
	resp = doJSON(t, app, http.MethodGet, "/api/entries/dates-with-entries?month=6", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestValidationErrors(t *testing.T) {
	app, _ := setupApp(t)
	token, _ := registerUser(t, app, "alice@example.com")

	// Register without an email
	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "No Email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Register with a bad email
	resp = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"name":     "Bad Email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Entry without a date
	resp = doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
		"entry_type": "text",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Entry with a malformed date
	resp = doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
		"entry_type": "text",
		"entry_date": "June 15th",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Malformed JSON body
	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, raw.StatusCode)
	raw.Body.Close()

	// Non-numeric entry id
	resp = doJSON(t, app, http.MethodPut, "/api/entries/abc", token, map[string]interface{}{
		"mood": "calm",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// An arbitrary entry_type string is accepted; the kind set is open.
	resp = doJSON(t, app, http.MethodPost, "/api/entries", token, map[string]interface{}{
		"entry_type": "dream",
		"entry_date": "2024-06-15",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestEntriesRequireAuth(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/entries", "", map[string]interface{}{
		"entry_type": "text",
		"entry_date": "2024-06-15",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
