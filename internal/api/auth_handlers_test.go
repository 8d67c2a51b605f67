package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/ai"
	"github.com/rebuttal-io/rebuttal/internal/auth"
	"github.com/rebuttal-io/rebuttal/internal/config"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.APIPort = 8081
	cfg.Auth.Mode = "jwt"
	return cfg
}

// newTestAPI builds an API on the in-memory store with JWT auth.
func newTestAPI(t *testing.T) (*Api, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	tm := auth.NewTokenManager("test-secret", time.Hour, st)
	api, err := New(testConfig(), st, tm, zap.NewNop(), nil, nil)
	require.NoError(t, err)
	return api, st
}

func newSessionTestAPI(t *testing.T) (*Api, *store.MemoryStore) {
	t.Helper()
	cfg := testConfig()
	cfg.Auth.Mode = "session"
	st := store.NewMemoryStore()
	sm := auth.NewSessionManager(st, st, time.Hour)
	api, err := New(cfg, st, sm, zap.NewNop(), nil, nil)
	require.NoError(t, err)
	return api, st
}

func newAITestAPI(t *testing.T, aiClient *ai.Client) (*Api, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	tm := auth.NewTokenManager("test-secret", time.Hour, st)
	api, err := New(testConfig(), st, tm, zap.NewNop(), aiClient, nil)
	require.NoError(t, err)
	return api, st
}

// doRequest runs one request through the full router, JSON-encoding body if
// non-nil and attaching token as a bearer credential if non-empty.
func doRequest(t *testing.T, api *Api, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// signup registers a user through the API and returns their bearer token.
func signup(t *testing.T, api *Api, email, username string) string {
	t.Helper()
	rec := doRequest(t, api, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    email,
		"username": username,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignup(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    "Alice@Example.com",
		"username": "alice",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, float64(1000), user["rating"])

	// The password hash must never appear in a response.
	_, leaked := user["passwordHash"]
	assert.False(t, leaked)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestSignupDuplicate(t *testing.T) {
	api, _ := newTestAPI(t)
	signup(t, api, "alice@example.com", "alice")

	rec := doRequest(t, api, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    "alice@example.com",
		"username": "alice2",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Email or username already taken", body["error"])
}

func TestSignupValidation(t *testing.T) {
	api, _ := newTestAPI(t)

	for name, payload := range map[string]map[string]string{
		"bad email":      {"email": "not-an-email", "username": "alice", "password": "hunter2hunter2"},
		"short password": {"email": "a@x.com", "username": "alice", "password": "short"},
		"short username": {"email": "a@x.com", "username": "al", "password": "hunter2hunter2"},
	} {
		rec := doRequest(t, api, http.MethodPost, "/auth/signup", "", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestLogin(t *testing.T) {
	api, _ := newTestAPI(t)
	signup(t, api, "alice@example.com", "alice")

	rec := doRequest(t, api, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
}

func TestLoginFailuresAreUniform(t *testing.T) {
	api, _ := newTestAPI(t)
	signup(t, api, "alice@example.com", "alice")

	// Wrong password and unknown email must be indistinguishable.
	wrongPassword := doRequest(t, api, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "not-her-password",
	})
	unknownEmail := doRequest(t, api, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter2hunter2",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(t, "Invalid email or password", decodeBody(t, wrongPassword)["error"])
}

func TestRequireAuth(t *testing.T) {
	api, _ := newTestAPI(t)

	// No credential at all.
	rec := doRequest(t, api, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Authentication required", body["error"])

	// Wrong scheme counts as no credential, not a bad token.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Basic xyz")
	raw := httptest.NewRecorder()
	api.Router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusUnauthorized, raw.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, raw)["error"])

	// A present-but-bogus bearer token is a different failure.
	rec = doRequest(t, api, http.MethodGet, "/auth/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["error"])
}

func TestMe(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")

	rec := doRequest(t, api, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
}

func TestMeReflectsProfileChanges(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")

	rec := doRequest(t, api, http.MethodPatch, "/users/me", token, map[string]string{
		"username": "alice-prime",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The old token keeps working and sees the new profile.
	rec = doRequest(t, api, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "alice-prime", user["username"])
}

func TestLogoutJWTMode(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")

	rec := doRequest(t, api, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Signed tokens cannot be recalled; the credential stays usable until
	// it expires.
	rec = doRequest(t, api, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutSessionMode(t *testing.T) {
	api, _ := newSessionTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")

	rec := doRequest(t, api, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, api, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// An opaque session dies with logout.
	rec = doRequest(t, api, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["error"])
}

func TestUpdateProfile(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")
	signup(t, api, "bob@example.com", "bob")

	rec := doRequest(t, api, http.MethodPatch, "/users/me", token, map[string]string{
		"bio": "Devil's advocate for hire",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "Devil's advocate for hire", user["bio"])
	assert.Equal(t, "alice", user["username"])

	// Taking another user's name is a conflict.
	rec = doRequest(t, api, http.MethodPatch, "/users/me", token, map[string]string{
		"username": "bob",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already taken", decodeBody(t, rec)["error"])

	// An empty patch is rejected.
	rec = doRequest(t, api, http.MethodPatch, "/users/me", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeartbeat(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doRequest(t, api, http.MethodGet, "/heartbeat", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewRequiresPort(t *testing.T) {
	cfg := testConfig()
	cfg.APIPort = 0
	_, err := New(cfg, store.NewMemoryStore(), nil, zap.NewNop(), nil, nil)
	assert.Error(t, err)
}
