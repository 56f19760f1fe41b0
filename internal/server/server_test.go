package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlens-ai/paperlens/internal/analyze"
	"github.com/paperlens-ai/paperlens/internal/auth"
	"github.com/paperlens-ai/paperlens/internal/cache"
	"github.com/paperlens-ai/paperlens/internal/config"
	"github.com/paperlens-ai/paperlens/internal/domain"
	"github.com/paperlens-ai/paperlens/internal/observability"
	"github.com/paperlens-ai/paperlens/internal/pdf"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

var testSummary = domain.Summary{
	Abstract:     "Studies X.",
	Motivation:   "X is hard.",
	Contribution: "New method.",
	Experiments:  "Benchmarks.",
	Methodology:  "Transformers.",
	Limitations:  "Small data.",
	FutureWork:   "Scale up.",
	Conclusion:   "Works well.",
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, _ string) (*domain.Summary, json.RawMessage, error) {
	raw, _ := json.Marshal(testSummary)
	s := testSummary
	return &s, raw, nil
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractText(_ []byte) (string, error) {
	return strings.Repeat("extracted paper text. ", 20), nil
}

type testApp struct {
	ts    *httptest.Server
	users *storage.UserRepository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Auth.SecretKey = "test-secret"
	cfg.Upload.MediaDir = t.TempDir()

	db, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path:         filepath.Join(t.TempDir(), "server_test.db"),
			MaxOpenConns: 1,
			JournalMode:  "WAL",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.LogConfig{Level: "error", ServiceName: "test"})
	users := storage.NewUserRepository(db)
	analyses := storage.NewAnalysisRepository(db)
	sessions := auth.NewManager(users, auth.Config{})

	analyzer := analyze.NewService(
		pdf.NewValidator(cfg.Upload.MaxSizeBytes),
		fakeExtractor{},
		fakeAnalyzer{},
		cache.NewMemoryClient(100),
		analyses,
		logger,
		analyze.Config{
			MediaDir: cfg.Upload.MediaDir,
			CacheTTL: time.Hour,
		},
	)

	srv, err := New(cfg, logger, users, analyses, sessions, analyzer)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testApp{ts: ts, users: users}
}

// createUser registers an account directly in the database.
func (a *testApp) createUser(t *testing.T, username, password string, admin bool) {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, a.users.Create(context.Background(), &storage.User{
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      admin,
	}))
}

// login returns an HTTP client whose cookie jar holds a valid session.
func (a *testApp) login(t *testing.T, username, password string) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.PostForm(a.ts.URL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return client
}

// noRedirect returns a client that surfaces redirects instead of following.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

// uploadPDF posts a multipart pdf_file request as the browser's fetch does.
func uploadPDF(t *testing.T, client *http.Client, baseURL, field, filename string, content []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/analyzer/analyze", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(app.ts.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	resp, err := noRedirect().Get(app.ts.URL + "/analyzer")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/login?next="), "unexpected redirect %q", loc)
}

func TestUnauthenticatedAPIGets401(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.ts.URL + "/api/history")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	payload := decodeJSON(t, resp)
	assert.Equal(t, false, payload["success"])
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)

	client := app.login(t, "alice", "correct horse battery")

	// The session cookie now grants access to the analyzer page.
	resp, err := client.Get(app.ts.URL + "/analyzer")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Analyze a research paper")
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)

	req, err := http.NewRequest(http.MethodPost, app.ts.URL+"/login",
		strings.NewReader(url.Values{"username": {"alice"}, "password": {"wrong"}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	payload := decodeJSON(t, resp)
	assert.Equal(t, "Invalid username or password.", payload["error"])
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)

	client := app.login(t, "alice", "correct horse battery")

	resp, err := client.PostForm(app.ts.URL+"/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()

	// The session no longer resolves; API calls are rejected.
	req, _ := http.NewRequest(http.MethodGet, app.ts.URL+"/api/history", nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnalyzeUpload(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	client := app.login(t, "alice", "correct horse battery")

	resp := uploadPDF(t, client, app.ts.URL, "pdf_file", "attention.pdf", []byte("%PDF-1.4\ncontent"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeJSON(t, resp)
	assert.Equal(t, true, payload["success"])
	assert.NotEmpty(t, payload["id"])

	analysis := payload["analysis"].(map[string]interface{})
	assert.Equal(t, "attention", analysis["title"])
	sections := analysis["sections"].([]interface{})
	assert.Len(t, sections, 8)
}

func TestAnalyzeMissingFile(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	client := app.login(t, "alice", "correct horse battery")

	resp := uploadPDF(t, client, app.ts.URL, "wrong_field", "attention.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload := decodeJSON(t, resp)
	assert.Equal(t, "No PDF file uploaded. Please select a file.", payload["error"])
}

func TestAnalyzeRejectsNonPDF(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	client := app.login(t, "alice", "correct horse battery")

	resp := uploadPDF(t, client, app.ts.URL, "pdf_file", "notes.txt", []byte("plain text"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload := decodeJSON(t, resp)
	assert.Equal(t, "Invalid file format. Please upload a PDF file.", payload["error"])
}

func TestHistoryLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	client := app.login(t, "alice", "correct horse battery")

	resp := uploadPDF(t, client, app.ts.URL, "pdf_file", "attention.pdf", []byte("%PDF-1.4\ncontent"))
	payload := decodeJSON(t, resp)
	require.Equal(t, true, payload["success"])
	id := payload["id"].(string)

	// History lists the analysis.
	req, _ := http.NewRequest(http.MethodGet, app.ts.URL+"/api/history", nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	payload = decodeJSON(t, resp)
	analyses := payload["analyses"].([]interface{})
	require.Len(t, analyses, 1)

	// The detail page renders the summary sections.
	resp, err = client.Get(app.ts.URL + "/history/" + id)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Transformers.")

	// PPTX export downloads a deck.
	resp, err = client.Get(app.ts.URL + "/history/" + id + "/export.pptx")
	require.NoError(t, err)
	deck, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		resp.Header.Get("Content-Type"))
	assert.Equal(t, "PK", string(deck[:2]))

	// Deleting empties the history.
	delReq, _ := http.NewRequest(http.MethodPost, app.ts.URL+"/history/"+id+"/delete", nil)
	delReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err = client.Do(delReq)
	require.NoError(t, err)
	payload = decodeJSON(t, resp)
	assert.Equal(t, true, payload["success"])

	req, _ = http.NewRequest(http.MethodGet, app.ts.URL+"/api/history", nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	payload = decodeJSON(t, resp)
	assert.Empty(t, payload["analyses"])
}

func TestHistoryIsPerUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	app.createUser(t, "bob", "another fine password", false)

	alice := app.login(t, "alice", "correct horse battery")
	resp := uploadPDF(t, alice, app.ts.URL, "pdf_file", "attention.pdf", []byte("%PDF-1.4\ncontent"))
	payload := decodeJSON(t, resp)
	require.Equal(t, true, payload["success"])
	id := payload["id"].(string)

	// Bob cannot see Alice's analysis.
	bob := app.login(t, "bob", "another fine password")
	req, _ := http.NewRequest(http.MethodGet, app.ts.URL+"/api/history", nil)
	httpResp, err := bob.Do(req)
	require.NoError(t, err)
	payload = decodeJSON(t, httpResp)
	assert.Empty(t, payload["analyses"])

	// Bob's detail request for Alice's analysis bounces to his history.
	nr := noRedirect()
	detailReq, _ := http.NewRequest(http.MethodGet, app.ts.URL+"/history/"+id, nil)
	for _, c := range bob.Jar.Cookies(mustParseURL(t, app.ts.URL)) {
		detailReq.AddCookie(c)
	}
	httpResp, err = nr.Do(detailReq)
	require.NoError(t, err)
	httpResp.Body.Close()
	assert.Equal(t, http.StatusFound, httpResp.StatusCode)
	assert.Equal(t, "/history", httpResp.Header.Get("Location"))
}

func TestAdminAccess(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	app.createUser(t, "root", "admin password here", true)

	// Regular users are rejected.
	alice := app.login(t, "alice", "correct horse battery")
	req, _ := http.NewRequest(http.MethodGet, app.ts.URL+"/admin/users", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err := alice.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admins see all users.
	admin := app.login(t, "root", "admin password here")
	req, _ = http.NewRequest(http.MethodGet, app.ts.URL+"/admin/users", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err = admin.Do(req)
	require.NoError(t, err)
	payload := decodeJSON(t, resp)
	assert.Equal(t, true, payload["success"])
	users := payload["users"].([]interface{})
	assert.Len(t, users, 2)
}

func TestAdminCreateUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "root", "admin password here", true)
	admin := app.login(t, "root", "admin password here")

	body := `{"username": "newbie", "email": "n@example.com", "password": "longenough", "is_admin": false}`
	req, _ := http.NewRequest(http.MethodPost, app.ts.URL+"/admin/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := admin.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payload := decodeJSON(t, resp)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "newbie", payload["username"])

	// The new account can log in.
	app.login(t, "newbie", "longenough")

	// Short passwords are rejected.
	req, _ = http.NewRequest(http.MethodPost, app.ts.URL+"/admin/users",
		strings.NewReader(`{"username": "x", "password": "short"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err = admin.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGeneratorPage(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "correct horse battery", false)
	client := app.login(t, "alice", "correct horse battery")

	// Empty state before any analysis.
	resp, err := client.Get(app.ts.URL + "/generator")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Slide generator")
	assert.Contains(t, string(body), "No papers analyzed yet")

	resp = uploadPDF(t, client, app.ts.URL, "pdf_file", "attention.pdf", []byte("%PDF-1.4\ncontent"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The analyzed paper shows up with its export link.
	resp, err = client.Get(app.ts.URL + "/generator")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "attention")
	assert.Contains(t, string(body), "/export.pptx")
}

func TestUnknownPathRedirectsToAnalyzer(t *testing.T) {
	app := newTestApp(t)

	resp, err := noRedirect().Get(app.ts.URL + "/no/such/page")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/analyzer", resp.Header.Get("Location"))

	resp, err = http.Get(app.ts.URL + "/api/no/such/endpoint")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
