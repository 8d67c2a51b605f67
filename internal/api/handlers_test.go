package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuttal-io/rebuttal/internal/ai"
)

func createDebate(t *testing.T, api *Api, token, topic string) string {
	t.Helper()
	rec := doRequest(t, api, http.MethodPost, "/debates", token, map[string]string{
		"topic":  topic,
		"stance": "pro",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	debate := decodeBody(t, rec)["debate"].(map[string]interface{})
	return debate["id"].(string)
}

func TestDebateCRUD(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")

	id := createDebate(t, api, token, "Remote work beats the office")

	rec := doRequest(t, api, http.MethodGet, "/debates/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	debate := decodeBody(t, rec)["debate"].(map[string]interface{})
	assert.Equal(t, "Remote work beats the office", debate["topic"])
	assert.Equal(t, "active", debate["status"])

	rec = doRequest(t, api, http.MethodGet, "/debates", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	debates := decodeBody(t, rec)["debates"].([]interface{})
	assert.Len(t, debates, 1)

	rec = doRequest(t, api, http.MethodPatch, "/debates/"+id, token, map[string]string{
		"topic": "Remote work beats the office, mostly",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	debate = decodeBody(t, rec)["debate"].(map[string]interface{})
	assert.Equal(t, "Remote work beats the office, mostly", debate["topic"])

	rec = doRequest(t, api, http.MethodDelete, "/debates/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, api, http.MethodGet, "/debates/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebateOwnership(t *testing.T) {
	api, _ := newTestAPI(t)
	alice := signup(t, api, "alice@example.com", "alice")
	bob := signup(t, api, "bob@example.com", "bob")

	id := createDebate(t, api, alice, "Pineapple belongs on pizza")

	// Bob sees Alice's debate as missing, never as forbidden.
	for _, probe := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/debates/" + id},
		{http.MethodPatch, "/debates/" + id},
		{http.MethodDelete, "/debates/" + id},
		{http.MethodGet, "/debates/" + id + "/messages"},
	} {
		rec := doRequest(t, api, probe.method, probe.path, bob, map[string]string{})
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", probe.method, probe.path)
		assert.Equal(t, "Debate not found", decodeBody(t, rec)["error"])
	}

	// And Bob's own listing stays empty.
	rec := doRequest(t, api, http.MethodGet, "/debates", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["debates"])
}

func TestMessagesAreOrdered(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")
	id := createDebate(t, api, token, "Tabs beat spaces")

	for _, content := range []string{"Opening statement", "Counterpoint", "Closing"} {
		rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/messages", token, map[string]string{
			"role":    "user",
			"content": content,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, api, http.MethodGet, "/debates/"+id+"/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decodeBody(t, rec)["messages"].([]interface{})
	require.Len(t, messages, 3)
	for i, raw := range messages {
		msg := raw.(map[string]interface{})
		assert.Equal(t, float64(i+1), msg["position"])
	}
}

func TestMessageValidation(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")
	id := createDebate(t, api, token, "Tabs beat spaces")

	rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/messages", token, map[string]string{
		"role":    "moderator",
		"content": "Order!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreDebate(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/score", r.URL.Path)
		var req ai.ScoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Tabs beat spaces", req.Topic)
		assert.Len(t, req.Messages, 2)
		json.NewEncoder(w).Encode(ai.ScoreResult{Score: 82, Verdict: "Strong opening, weak close"})
	}))
	defer backend.Close()

	api, _ := newAITestAPI(t, ai.NewClient(backend.URL, 5*time.Second))
	token := signup(t, api, "alice@example.com", "alice")
	id := createDebate(t, api, token, "Tabs beat spaces")

	for _, content := range []string{"Opening", "Rebuttal"} {
		rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/messages", token, map[string]string{
			"role": "user", "content": content,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/score", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	debate := decodeBody(t, rec)["debate"].(map[string]interface{})
	assert.Equal(t, "completed", debate["status"])
	assert.Equal(t, float64(82), debate["score"])
	assert.Equal(t, "Strong opening, weak close", debate["verdict"])
}

func TestScoreDebateEmpty(t *testing.T) {
	api, _ := newAITestAPI(t, ai.NewClient("http://127.0.0.1:1", time.Second))
	token := signup(t, api, "alice@example.com", "alice")
	id := createDebate(t, api, token, "Tabs beat spaces")

	rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/score", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot score an empty debate", decodeBody(t, rec)["error"])
}

func TestScoreDebateBackendDown(t *testing.T) {
	api, _ := newAITestAPI(t, ai.NewClient("http://127.0.0.1:1", time.Second))
	token := signup(t, api, "alice@example.com", "alice")
	id := createDebate(t, api, token, "Tabs beat spaces")

	rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/messages", token, map[string]string{
		"role": "user", "content": "Opening",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, api, http.MethodPost, "/debates/"+id+"/score", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestScoreDebateNotConfigured(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signup(t, api, "alice@example.com", "alice")
	id := createDebate(t, api, token, "Tabs beat spaces")

	rec := doRequest(t, api, http.MethodPost, "/debates/"+id+"/score", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoomLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	host := signup(t, api, "host@example.com", "hostess")
	guest := signup(t, api, "guest@example.com", "guest")
	late := signup(t, api, "late@example.com", "latecomer")

	rec := doRequest(t, api, http.MethodPost, "/rooms", host, map[string]string{
		"topic": "Is cereal a soup?",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeBody(t, rec)["room"].(map[string]interface{})
	code := room["code"].(string)
	require.Len(t, code, 8)

	// The host already holds a seat, so only one is left.
	rec = doRequest(t, api, http.MethodGet, "/rooms/"+code, host, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["seatsLeft"])
	assert.Equal(t, true, body["joined"])

	rec = doRequest(t, api, http.MethodPost, "/rooms/"+code+"/join", guest, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Rejoining is idempotent.
	rec = doRequest(t, api, http.MethodPost, "/rooms/"+code+"/join", guest, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Both seats taken.
	rec = doRequest(t, api, http.MethodPost, "/rooms/"+code+"/join", late, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Room is full", decodeBody(t, rec)["error"])

	// Leaving frees a seat for the latecomer.
	rec = doRequest(t, api, http.MethodPost, "/rooms/"+code+"/leave", guest, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, api, http.MethodPost, "/rooms/"+code+"/join", late, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Leaving a room you are not in is still a success.
	rec = doRequest(t, api, http.MethodPost, "/rooms/"+code+"/leave", guest, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRoomAnonymous(t *testing.T) {
	api, _ := newTestAPI(t)
	host := signup(t, api, "host@example.com", "hostess")

	rec := doRequest(t, api, http.MethodPost, "/rooms", host, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody(t, rec)["room"].(map[string]interface{})["code"].(string)

	// No token: the room is visible but "joined" is absent.
	rec = doRequest(t, api, http.MethodGet, "/rooms/"+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["seatsLeft"])
	_, present := body["joined"]
	assert.False(t, present)

	// Case-insensitive lookup.
	rec = doRequest(t, api, http.MethodGet, "/rooms/"+strings.ToLower(code), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, api, http.MethodGet, "/rooms/NOPE0000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWaitlist(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/waitlist", "", map[string]string{"email": "fan@example.com"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Same email again: acknowledged, not duplicated.
	rec = doRequest(t, api, http.MethodPost, "/waitlist", "", map[string]string{"email": "fan@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, api, http.MethodPost, "/waitlist", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
