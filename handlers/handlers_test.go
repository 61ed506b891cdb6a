package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/slotswapper/slotswapper/config"
	"github.com/slotswapper/slotswapper/database/memorystore"
	"github.com/slotswapper/slotswapper/middleware"
	"github.com/slotswapper/slotswapper/models"
	"github.com/slotswapper/slotswapper/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *memorystore.Store) {
	t.Helper()

	store := memorystore.New()
	authService := services.NewAuthService(store.Users(), "test-secret", time.Hour)
	slotService := services.NewSlotService(store.Slots())
	swapService := services.NewSwapService(store.Slots(), store.Swaps(), store.Users())

	webApp := &WebApp{
		Config:      &config.Config{},
		AuthService: authService,
		SlotService: slotService,
		SwapService: swapService,
		Version:     "test",
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})

	app.Get("/health", HealthCheck(webApp))

	auth := app.Group("/auth")
	auth.Post("/signup", Signup(webApp))
	auth.Post("/login", Login(webApp))

	api := app.Group("/api")
	api.Use(middleware.AuthRequired(webApp.AuthService))
	api.Get("/events", EventsList(webApp))
	api.Post("/events", EventsCreate(webApp))
	api.Put("/events/:id", EventsUpdate(webApp))
	api.Delete("/events/:id", EventsDelete(webApp))
	api.Get("/swappable-slots", SwappableSlots(webApp))
	api.Post("/swap-request", SwapRequestCreate(webApp))
	api.Post("/swap-response/:requestId", SwapResponse(webApp))
	api.Get("/swap-requests", SwapRequestsList(webApp))

	return app, store
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *models.APIError `json:"error"`
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
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
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp.StatusCode, env
}

func signupUser(t *testing.T, app *fiber.App, name string) (string, string) {
	t.Helper()

	status, env := doRequest(t, app, http.MethodPost, "/auth/signup", "", models.SignupRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "a long enough password",
	})
	require.Equal(t, http.StatusCreated, status)

	var auth models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token, auth.User.ID
}

func createSlot(t *testing.T, app *fiber.App, token, title string) string {
	t.Helper()

	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	status, env := doRequest(t, app, http.MethodPost, "/api/events", token, models.CreateSlotRequest{
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, status)

	var slot struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &slot))
	return slot.ID
}

func markSwappable(t *testing.T, app *fiber.App, token, slotID string) {
	t.Helper()

	swappable := "SWAPPABLE"
	status, _ := doRequest(t, app, http.MethodPut, "/api/events/"+slotID, token, models.UpdateSlotRequest{
		Status: &swappable,
	})
	require.Equal(t, http.StatusOK, status)
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("signup and login", func(t *testing.T) {
		token, _ := signupUser(t, app, "alice")
		require.NotEmpty(t, token)

		status, env := doRequest(t, app, http.MethodPost, "/auth/login", "", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "a long enough password",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		status, env := doRequest(t, app, http.MethodPost, "/auth/signup", "", models.SignupRequest{
			Name:     "Imposter",
			Email:    "alice@example.com",
			Password: "another long password",
		})
		assert.Equal(t, http.StatusConflict, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "CONFLICT", env.Error.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		status, env := doRequest(t, app, http.MethodPost, "/auth/signup", "", models.SignupRequest{
			Name:     "Bob",
			Email:    "bob@example.com",
			Password: "short",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "password")
	})

	t.Run("wrong password unauthorized", func(t *testing.T) {
		status, _ := doRequest(t, app, http.MethodPost, "/auth/login", "", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "not the password",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := doRequest(t, app, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodGet, "/api/events", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSwapFlow(t *testing.T) {
	app, _ := newTestApp(t)

	aliceToken, aliceID := signupUser(t, app, "alice")
	bobToken, bobID := signupUser(t, app, "bob")

	aliceSlot := createSlot(t, app, aliceToken, "Gym session")
	bobSlot := createSlot(t, app, bobToken, "Piano lesson")
	markSwappable(t, app, aliceToken, aliceSlot)
	markSwappable(t, app, bobToken, bobSlot)

	// The marketplace shows bob's slot to alice but not her own.
	status, env := doRequest(t, app, http.MethodGet, "/api/swappable-slots", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	var market []struct {
		ID        string `json:"id"`
		OwnerName string `json:"ownerName"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &market))
	require.Len(t, market, 1)
	assert.Equal(t, bobSlot, market[0].ID)
	assert.Equal(t, "bob", market[0].OwnerName)

	// Alice proposes; both slots lock.
	status, env = doRequest(t, app, http.MethodPost, "/api/swap-request", aliceToken, models.SwapProposalRequest{
		MySlotID:    aliceSlot,
		TheirSlotID: bobSlot,
	})
	require.Equal(t, http.StatusCreated, status)
	var request struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &request))
	assert.Equal(t, "PENDING", request.Status)

	// A locked slot cannot be proposed again.
	status, _ = doRequest(t, app, http.MethodPost, "/api/swap-request", aliceToken, models.SwapProposalRequest{
		MySlotID:    aliceSlot,
		TheirSlotID: bobSlot,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Nor edited or deleted while the swap is pending.
	status, _ = doRequest(t, app, http.MethodPut, "/api/events/"+aliceSlot, aliceToken, models.UpdateSlotRequest{
		Title: func() *string { s := "Renamed"; return &s }(),
	})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = doRequest(t, app, http.MethodDelete, "/api/events/"+aliceSlot, aliceToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Bob sees the incoming request.
	status, env = doRequest(t, app, http.MethodGet, "/api/swap-requests", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var inbox []struct {
		ID       string `json:"id"`
		Incoming bool   `json:"incoming"`
		FromName string `json:"fromName"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	require.Len(t, inbox, 1)
	assert.True(t, inbox[0].Incoming)
	assert.Equal(t, "alice", inbox[0].FromName)

	// The proposer cannot answer her own request.
	status, _ = doRequest(t, app, http.MethodPost, "/api/swap-response/"+request.ID, aliceToken, models.SwapResponseRequest{
		Action: "ACCEPT",
	})
	assert.Equal(t, http.StatusNotFound, status)

	// Bob accepts; ownership swaps.
	status, env = doRequest(t, app, http.MethodPost, "/api/swap-response/"+request.ID, bobToken, models.SwapResponseRequest{
		Action: "ACCEPT",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &request))
	assert.Equal(t, "ACCEPTED", request.Status)

	// Each calendar now holds the other user's old slot, BUSY.
	status, env = doRequest(t, app, http.MethodGet, "/api/events", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	var calendar []struct {
		ID      string `json:"id"`
		OwnerID string `json:"ownerId"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &calendar))
	require.Len(t, calendar, 1)
	assert.Equal(t, bobSlot, calendar[0].ID)
	assert.Equal(t, aliceID, calendar[0].OwnerID)
	assert.Equal(t, "BUSY", calendar[0].Status)

	status, env = doRequest(t, app, http.MethodGet, "/api/events", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &calendar))
	require.Len(t, calendar, 1)
	assert.Equal(t, aliceSlot, calendar[0].ID)
	assert.Equal(t, bobID, calendar[0].OwnerID)

	// The request is terminal; a second response finds nothing.
	status, _ = doRequest(t, app, http.MethodPost, "/api/swap-response/"+request.ID, bobToken, models.SwapResponseRequest{
		Action: "REJECT",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSwapResponse_InvalidAction(t *testing.T) {
	app, _ := newTestApp(t)
	token, _ := signupUser(t, app, "carol")

	status, env := doRequest(t, app, http.MethodPost, "/api/swap-response/some-id", token, map[string]string{
		"action": "MAYBE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestSwapRequest_InvalidSlots(t *testing.T) {
	app, _ := newTestApp(t)
	aliceToken, _ := signupUser(t, app, "alice")
	bobToken, _ := signupUser(t, app, "bob")

	aliceSlot := createSlot(t, app, aliceToken, "Gym session") // stays BUSY
	bobSlot := createSlot(t, app, bobToken, "Piano lesson")
	markSwappable(t, app, bobToken, bobSlot)

	status, env := doRequest(t, app, http.MethodPost, "/api/swap-request", aliceToken, models.SwapProposalRequest{
		MySlotID:    aliceSlot,
		TheirSlotID: bobSlot,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}
