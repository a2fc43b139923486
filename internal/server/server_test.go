package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quotely/internal/config"
	"quotely/internal/models"
	"quotely/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testAPI struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

// newTestAPI serves the full middleware stack and routes over an in-memory
// SQLite database, without Redis.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		Env:            "test",
		Port:           "0",
		JWTSecret:      testSecret,
		JWTExpiresIn:   "1h",
		Timezone:       "UTC",
		AllowedOrigins: "http://localhost:5173",
	}

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testAPI{t: t, app: s.NewApp(), db: db}
}

func (a *testAPI) do(method, target, token string, body any) *http.Response {
	a.t.Helper()
	req := jsonRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *testAPI) decode(resp *http.Response, dest any) {
	a.t.Helper()
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(dest))
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	var body tokenResponse
	a.decode(resp, &body)
	return body.AccessToken
}

func (a *testAPI) createQuote(token, text string) models.Quote {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/quotes", token, map[string]string{"text": text})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	var quote models.Quote
	a.decode(resp, &quote)
	return quote
}

func (a *testAPI) voteCounts(query string) map[uuid.UUID]int64 {
	a.t.Helper()
	resp := a.do(http.MethodGet, "/quotes/list?"+query, "", nil)
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	var page models.QuotePage
	a.decode(resp, &page)

	counts := make(map[uuid.UUID]int64, len(page.Data))
	for _, q := range page.Data {
		counts[q.ID] = q.VoteCount
	}
	return counts
}

func TestAPI_VoteMovesBetweenQuotes(t *testing.T) {
	api := newTestAPI(t)

	alice := api.register("alice")
	bob := api.register("bob1")

	q1 := api.createQuote(alice, "The unexamined life is not worth living")
	q2 := api.createQuote(alice, "Know thyself")
	assert.Equal(t, "alice", q1.Author.Username)
	assert.Equal(t, int64(0), q1.VoteCount)

	resp := api.do(http.MethodPut, "/votes/"+q1.ID.String(), bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first models.VoteView
	api.decode(resp, &first)
	assert.Equal(t, q1.ID, first.Quote.ID)
	assert.Equal(t, "bob1", first.User.Username)

	counts := api.voteCounts("")
	assert.Equal(t, int64(1), counts[q1.ID])
	assert.Equal(t, int64(0), counts[q2.ID])

	resp = api.do(http.MethodPut, "/votes/"+q2.ID.String(), bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second models.VoteView
	api.decode(resp, &second)
	assert.Equal(t, first.ID, second.ID, "the existing vote row is moved, not replaced")
	assert.Equal(t, q2.ID, second.Quote.ID)

	counts = api.voteCounts("")
	assert.Equal(t, int64(0), counts[q1.ID])
	assert.Equal(t, int64(1), counts[q2.ID])

	var rows int64
	require.NoError(t, api.db.Model(&models.Vote{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	resp = api.do(http.MethodGet, "/users/profile", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile models.Profile
	api.decode(resp, &profile)
	assert.Equal(t, "bob1", profile.Username)
	require.NotNil(t, profile.Vote)
	assert.Equal(t, q2.ID, profile.Vote.Quote.ID)

	resp = api.do(http.MethodDelete, "/votes", bob, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = api.do(http.MethodDelete, "/votes", bob, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	counts = api.voteCounts("")
	assert.Equal(t, int64(0), counts[q2.ID])
}

func TestAPI_OwnershipIsIndistinguishableFromAbsence(t *testing.T) {
	api := newTestAPI(t)

	alice := api.register("alice")
	bob := api.register("bob1")
	quote := api.createQuote(alice, "Mine")

	foreign := api.do(http.MethodDelete, "/quotes/"+quote.ID.String(), bob, nil)
	missing := api.do(http.MethodDelete, "/quotes/"+uuid.NewString(), bob, nil)

	assert.Equal(t, http.StatusBadRequest, foreign.StatusCode)
	assert.Equal(t, foreign.StatusCode, missing.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeError(t, foreign).Code)
	assert.Equal(t, models.CodeNotFound, decodeError(t, missing).Code)

	edit := api.do(http.MethodPatch, "/quotes/"+quote.ID.String(), bob, map[string]string{"text": "Yours"})
	assert.Equal(t, http.StatusBadRequest, edit.StatusCode)

	resp := api.do(http.MethodPatch, "/quotes/"+quote.ID.String(), alice, map[string]string{"text": "Still mine"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Quote
	api.decode(resp, &updated)
	assert.Equal(t, "Still mine", updated.Text)

	resp = api.do(http.MethodDelete, "/quotes/"+quote.ID.String(), alice, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, api.voteCounts(""))
}

func TestAPI_FilteredVoteCountPage(t *testing.T) {
	api := newTestAPI(t)
	author := testutil.CreateUser(t, api.db, "author")

	voter := 0
	addVotes := func(q *models.Quote, n int) {
		for i := 0; i < n; i++ {
			voter++
			u := testutil.CreateUser(t, api.db, fmt.Sprintf("voter%02d", voter))
			testutil.CreateVote(t, api.db, u, q)
		}
	}

	// Seven quotes match text=foo with at least two votes.
	for i, n := range []int{2, 3, 2, 4, 2, 2, 3} {
		addVotes(testutil.CreateQuote(t, api.db, author, fmt.Sprintf("foo number %d", i)), n)
	}
	addVotes(testutil.CreateQuote(t, api.db, author, "foo with one vote"), 1)
	testutil.CreateQuote(t, api.db, author, "foo with none")
	addVotes(testutil.CreateQuote(t, api.db, author, "popular bar"), 5)

	query := "text=foo&minVotes=2&sortField=voteCount&sortDirection=desc&page=1&limit=5"
	resp := api.do(http.MethodGet, "/quotes/list?"+query, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page models.QuotePage
	api.decode(resp, &page)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.Limit)
	require.Len(t, page.Data, 5)
	assert.Equal(t, int64(4), page.Data[0].VoteCount)
	for i := 1; i < len(page.Data); i++ {
		assert.LessOrEqual(t, page.Data[i].VoteCount, page.Data[i-1].VoteCount)
	}
	for _, q := range page.Data {
		assert.Contains(t, q.Text, "foo")
		assert.GreaterOrEqual(t, q.VoteCount, int64(2))
		require.NotNil(t, q.Author)
		assert.Equal(t, "author", q.Author.Username)
	}

	resp = api.do(http.MethodGet, "/quotes/list?text=foo&minVotes=2&sortField=voteCount&sortDirection=desc&page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second models.QuotePage
	api.decode(resp, &second)
	assert.Equal(t, int64(7), second.Total)
	assert.Len(t, second.Data, 2)
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/quotes"},
		{http.MethodPatch, "/quotes/" + uuid.NewString()},
		{http.MethodDelete, "/quotes/" + uuid.NewString()},
		{http.MethodPut, "/votes/" + uuid.NewString()},
		{http.MethodDelete, "/votes"},
		{http.MethodGet, "/users/profile"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp := api.do(r.method, r.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, models.CodeUnauthorized, decodeError(t, resp).Code)
		})
	}

	resp := api.do(http.MethodGet, "/quotes/list", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_DuplicateRegistration(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice")

	resp := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"password": "another-password",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_HealthAndFallbacks(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	api.decode(resp, &ready)
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])

	resp = api.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeError(t, resp).Code)

	req := httptest.NewRequest(http.MethodOptions, "/quotes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight, err := api.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = preflight.Body.Close() }()
	assert.Equal(t, "http://localhost:5173", preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, preflight.Header.Get("X-Request-Id"))

	// Rejected requests keep their CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/quotes/list?page=0", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rejected, err := api.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = rejected.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	assert.Equal(t, "http://localhost:5173", rejected.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_SwaggerDocs(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths               map[string]map[string]json.RawMessage `json:"paths"`
		SecurityDefinitions map[string]json.RawMessage            `json:"securityDefinitions"`
	}
	api.decode(resp, &doc)
	assert.Equal(t, "Quotely API", doc.Info.Title)
	assert.Contains(t, doc.SecurityDefinitions, "BearerAuth")

	routes := map[string][]string{
		"/auth/register":   {"post"},
		"/auth/login":      {"post"},
		"/quotes":          {"post"},
		"/quotes/list":     {"get"},
		"/quotes/{id}":     {"patch", "delete"},
		"/votes/{quoteId}": {"put"},
		"/votes":           {"delete"},
		"/users/profile":   {"get"},
	}
	for path, methods := range routes {
		require.Contains(t, doc.Paths, path)
		for _, m := range methods {
			assert.Contains(t, doc.Paths[path], m, "%s %s", m, path)
		}
	}

	resp = api.do(http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
