package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"careerquiz/auth"
	"careerquiz/crypto"
	"careerquiz/db"
	"careerquiz/i18n"
	"careerquiz/logging"
	"careerquiz/quiz"

	"github.com/dchest/captcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "handlers-test-session-key-0123456789abcdef"

var testKeys = crypto.DeriveKeys(testSecret)

type testEnv struct {
	h  *Handler
	db *db.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, i18n.LoadTranslations())

	ctx := context.Background()
	database, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	svc, err := auth.NewService(database.Accounts(), bcrypt.MinCost, logging.Discard())
	require.NoError(t, err)
	_, err = svc.SeedAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)

	h := New(Options{
		AppName:              "Career Quiz Test",
		Auth:                 svc,
		Sessions:             auth.NewSessionManager(testKeys, false),
		Tokens:               auth.NewTokenIssuer(testKeys.Token, time.Hour),
		Results:              database.Results(),
		Logger:               logging.Discard(),
		CaptchaAfterFailures: 3,
	})
	return &testEnv{h: h, db: database}
}

func (e *testEnv) mux() http.Handler {
	mux := http.NewServeMux()
	e.h.RegisterHandlers(mux)
	return mux
}

func (e *testEnv) resultCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&n))
	return n
}

// testClient keeps cookies between requests and never follows redirects.
type testClient struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func newTestClient(t *testing.T, handler http.Handler) *testClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:   t,
		srv: srv,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *testClient) postForm(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) login(username, password, role string) *http.Response {
	c.t.Helper()
	resp, _ := c.postForm("/", url.Values{
		"username": {username},
		"password": {password},
		"role":     {role},
	})
	return resp
}

func scenarioAnswers() url.Values {
	return url.Values{
		"q1": {"b"}, "q2": {"a"}, "q3": {"c"},
		"i1": {"yes"}, "i2": {"yes"}, "i3": {"no"},
		"p1": {"10"}, "p2": {"10"}, "p3": {"10"},
	}
}

func TestLoginPage(t *testing.T) {
	c := newTestClient(t, newTestEnv(t).mux())

	resp, body := c.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="username"`)
	assert.Contains(t, body, `name="password"`)
	assert.Contains(t, body, `name="role"`)
	assert.NotContains(t, body, "/captcha/")

	resp, _ = c.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStudentFlow(t *testing.T) {
	env := newTestEnv(t)
	c := newTestClient(t, env.mux())

	resp := c.login("alice", "pw1", "student")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/test", resp.Header.Get("Location"))

	resp, body := c.get("/test")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, id := range quiz.AnswerIDs() {
		assert.Contains(t, body, `name="`+id+`"`)
	}
	assert.Contains(t, body, "alice")

	resp, body = c.postForm("/result", scenarioAnswers())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, quiz.CareerTech)
	assert.Contains(t, body, "<td>80</td>")

	attempts, err := env.db.Results().All(context.Background())
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "alice", attempts[0].Username)
	assert.Equal(t, 30, attempts[0].Aptitude)
	assert.Equal(t, 20, attempts[0].Interest)
	assert.Equal(t, 30, attempts[0].Personality)
	assert.Equal(t, 80, attempts[0].Total)
	assert.Equal(t, quiz.CareerTech, attempts[0].Career)
}

func TestEmptySubmissionRecordsLowestBand(t *testing.T) {
	env := newTestEnv(t)
	c := newTestClient(t, env.mux())
	require.Equal(t, http.StatusSeeOther, c.login("bob", "pw", "student").StatusCode)

	resp, body := c.postForm("/result", url.Values{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, quiz.CareerCreative)
	assert.Equal(t, 1, env.resultCount(t))
}

func TestResultMalformedPersonality(t *testing.T) {
	env := newTestEnv(t)
	c := newTestClient(t, env.mux())
	require.Equal(t, http.StatusSeeOther, c.login("carol", "pw", "student").StatusCode)

	form := scenarioAnswers()
	form.Set("p2", "lots")
	resp, body := c.postForm("/result", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "p2")
	assert.Equal(t, 0, env.resultCount(t))
}

func TestResultRequiresPost(t *testing.T) {
	c := newTestClient(t, newTestEnv(t).mux())
	require.Equal(t, http.StatusSeeOther, c.login("dave", "pw", "student").StatusCode)

	resp, _ := c.get("/result")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	c := newTestClient(t, env.mux())

	require.Equal(t, http.StatusSeeOther, c.login("erin", "right", "student").StatusCode)
	resp, _ := c.get("/logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	tests := []struct {
		name, username, password, role string
	}{
		{"wrong password", "erin", "wrong", "student"},
		{"student claims admin", "erin", "right", "admin"},
		{"admin claims student", "admin", "admin123", "student"},
		{"admin wrong password", "admin", "nope", "admin"},
		{"unknown admin", "mallory", "x", "admin"},
		{"empty username", "", "x", "student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// keep the limiter out of the way
			env.h.loginLimiter.Reset("127.0.0.1")

			resp, body := c.postForm("/", url.Values{
				"username": {tt.username},
				"password": {tt.password},
				"role":     {tt.role},
			})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, body, "Invalid Login")

			resp, _ = c.get("/test")
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		})
	}

	var accounts int
	require.NoError(t, env.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&accounts))
	assert.Equal(t, 2, accounts, "only the seeded admin and erin exist")
}

func TestPagesRequireSession(t *testing.T) {
	c := newTestClient(t, newTestEnv(t).mux())

	for _, path := range []string{"/test", "/admin", "/admin/export.csv"} {
		resp, _ := c.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/", resp.Header.Get("Location"), path)
	}

	resp, _ := c.postForm("/result", scenarioAnswers())
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestAdminPagesRejectStudents(t *testing.T) {
	env := newTestEnv(t)
	c := newTestClient(t, env.mux())
	require.Equal(t, http.StatusSeeOther, c.login("frank", "pw", "student").StatusCode)
	resp, _ := c.postForm("/result", scenarioAnswers())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/admin", "/admin/export.csv"} {
		resp, body := c.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.NotContains(t, body, "frank", path)
	}
}

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)

	students := newTestClient(t, env.mux())
	require.Equal(t, http.StatusSeeOther, students.login("gina", "pw", "student").StatusCode)
	resp, _ := students.postForm("/result", scenarioAnswers())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = students.postForm("/result", url.Values{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	admin := newTestClient(t, env.mux())
	resp = admin.login("admin", "admin123", "admin")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, body := admin.get("/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "gina")
	for _, career := range quiz.Careers {
		assert.Contains(t, body, career)
	}
	assert.Contains(t, body, "(2)")

	resp, body = admin.get("/admin/export.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,username,aptitude,interest,personality,total,career,created_at", lines[0])
	assert.Contains(t, lines[1], "gina,30,20,30,80")
}

func TestAdminDashboardEmpty(t *testing.T) {
	c := newTestClient(t, newTestEnv(t).mux())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123", "admin").StatusCode)

	resp, body := c.get("/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No results yet.")
}

func TestLogout(t *testing.T) {
	c := newTestClient(t, newTestEnv(t).mux())
	require.Equal(t, http.StatusSeeOther, c.login("hank", "pw", "student").StatusCode)

	resp, _ := c.get("/test")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.get("/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = c.get("/test")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// logging out twice is harmless
	resp, _ = c.get("/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

var (
	captchaIDPattern = regexp.MustCompile(`name="captcha_id" value="([^"]+)"`)
	csrfTokenPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)
)

func TestCaptchaAfterFailures(t *testing.T) {
	store := captcha.NewMemoryStore(captcha.CollectNum, captcha.Expiration)
	captcha.SetCustomStore(store)

	env := newTestEnv(t)
	c := newTestClient(t, env.mux())

	for i := 0; i < 3; i++ {
		resp := c.login("admin", "wrong", "admin")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	_, body := c.get("/")
	require.Contains(t, body, "/captcha/")

	// correct credentials are not enough once the captcha is shown
	resp, body := c.postForm("/", url.Values{
		"username": {"admin"}, "password": {"admin123"}, "role": {"admin"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "captcha")

	_, body = c.get("/")
	m := captchaIDPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	id := m[1]
	digits := store.Get(id, false)
	require.NotEmpty(t, digits)
	solution := make([]byte, len(digits))
	for i, d := range digits {
		solution[i] = '0' + d
	}

	resp, _ = c.postForm("/", url.Values{
		"username": {"admin"}, "password": {"admin123"}, "role": {"admin"},
		"captcha_id": {id}, "captcha_solution": {string(solution)},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	// success resets the counter
	assert.Zero(t, env.h.loginLimiter.Failures("127.0.0.1"))
}

func TestLoginBlockedAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.h.captchaAfter = 0
	c := newTestClient(t, env.mux())

	for i := 0; i < maxAttempts; i++ {
		resp := c.login("admin", "wrong", "admin")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := c.postForm("/", url.Values{
		"username": {"admin"}, "password": {"admin123"}, "role": {"admin"},
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many failed attempts")
}

func TestRoutesCSRF(t *testing.T) {
	env := newTestEnv(t)
	c := newTestClient(t, env.h.Routes(testKeys.CSRF, false))

	form := url.Values{"username": {"ivy"}, "password": {"pw"}, "role": {"student"}}

	resp, _ := c.postForm("/", form)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	m := csrfTokenPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	form.Set("gorilla.csrf.Token", m[1])

	resp, _ = c.postForm("/", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/test", resp.Header.Get("Location"))

	_, body = c.get("/test")
	m = csrfTokenPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	answers := scenarioAnswers()
	answers.Set("gorilla.csrf.Token", m[1])
	resp, _ = c.postForm("/result", answers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.resultCount(t))
}

func TestQuizSections(t *testing.T) {
	sections := quizSections()
	require.Len(t, sections, 3)
	assert.Equal(t, "SectionAptitude", sections[0].Title)
	assert.Equal(t, "SectionInterest", sections[1].Title)
	assert.Equal(t, "SectionPersonality", sections[2].Title)
	for _, s := range sections {
		assert.Len(t, s.Questions, 3)
	}
}
