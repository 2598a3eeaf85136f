package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/oculab/growthtrack/internal/chart"
	"github.com/oculab/growthtrack/internal/config"
	filerepo "github.com/oculab/growthtrack/internal/repository/file"
	"github.com/oculab/growthtrack/internal/service"
	"github.com/oculab/growthtrack/internal/session"
	"github.com/oculab/growthtrack/internal/storage"
)

const testCookie = "growthtrack_session"

// newTestServer wires the full stack over a temp directory, memory session
// store and no email index.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()

	layout, err := storage.NewLayout(t.TempDir())
	require.NoError(t, err)

	userRepo := filerepo.NewUserRepository(layout, logger)
	store := session.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	authSvc := service.NewAuthService(userRepo, nil, logger)
	sessionSvc := service.NewSessionService(store, layout, time.Hour, logger)
	dataSvc := service.NewDataService(layout, userRepo, logger)

	cfg := &config.Config{}
	cfg.Session.Backend = "memory"
	cfg.Session.TTL = time.Hour
	cfg.Session.CookieName = testCookie
	cfg.Metrics.Enabled = false

	router := NewRouter(RouterDeps{
		Auth:     NewAuthHandler(authSvc, sessionSvc, testCookie, time.Hour, logger),
		Data:     NewDataHandler(dataSvc, logger),
		Chart:    NewChartHandler(dataSvc, logger),
		Sessions: sessionSvc,
		Config:   cfg,
		Logger:   logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func registerBody(username, email string, sharing bool, institution string) map[string]any {
	return map[string]any{
		"username":        username,
		"password":        "correct-horse",
		"email":           email,
		"fullName":        "Test User",
		"birthDate":       "2012-03-15",
		"gender":          "F",
		"institutionName": institution,
		"dataSharing":     sharing,
	}
}

// loginAndGetCookie registers and logs in a user, returning the session
// cookie.
func loginAndGetCookie(t *testing.T, srv *httptest.Server, username, email string, sharing bool, institution string) *http.Cookie {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", registerBody(username, email, sharing, institution), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]string{
		"username": username,
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			require.True(t, c.HttpOnly)
			return c
		}
	}
	t.Fatal("login response did not set a session cookie")
	return nil
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterStripsPassword(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", registerBody("alice", "alice@example.com", false, ""), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "alice", body["username"])
	require.NotContains(t, body, "password")
	require.NotEmpty(t, body["user_id"])
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", registerBody("alice", "alice@example.com", false, ""), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", registerBody("alice", "other@example.com", false, ""), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	body := registerBody("ab", "alice@example.com", false, "")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body = registerBody("alice", "not-an-email", false, "")
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", registerBody("alice", "alice@example.com", false, ""), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown username reads identically.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]string{
		"username": "nobody",
		"password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeReturnsCurrentUser(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "alice", body["username"])
	require.NotContains(t, body, "password")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutWithoutSession(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDemoLogin(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/demo", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "demo_user", body["username"])
	require.Equal(t, "demo", body["user_id"])

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	// Demo sessions can save and load like any other.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/data/demo.json", map[string]string{"k": "v"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDataRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	payload := map[string]any{"patientName": "Kim", "visits": []int{1, 2, 3}}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/data/visits.json", payload, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/data/visits.json", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded map[string]any
	decodeBody(t, resp, &loaded)
	require.Equal(t, "Kim", loaded["patientName"])
}

func TestDataRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/data/visits.json", map[string]string{}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDataMissingFile(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/data/absent.json", nil, cookie)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDataRejectsNonJSONBody(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/data/bad.json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInstitutionUsersSharedScope(t *testing.T) {
	srv := newTestServer(t)

	aliceCookie := loginAndGetCookie(t, srv, "dr_alice", "alice@hospital.com", true, "Seoul Eye Clinic")
	loginAndGetCookie(t, srv, "dr_bob", "bob@hospital.com", true, "Seoul Eye Clinic")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/institution/users", nil, aliceCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Users []map[string]any `json:"users"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Users, 2)
	for _, u := range body.Users {
		require.NotContains(t, u, "password")
	}
}

func TestInstitutionEndpointsNeedInstitution(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/institution/users", nil, cookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/institution/patients", nil, cookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInstitutionSharedDataVisibleAcrossUsers(t *testing.T) {
	srv := newTestServer(t)

	aliceCookie := loginAndGetCookie(t, srv, "dr_alice", "alice@hospital.com", true, "Seoul Eye Clinic")
	bobCookie := loginAndGetCookie(t, srv, "dr_bob", "bob@hospital.com", true, "Seoul Eye Clinic")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/data/note.json", map[string]string{"author": "alice"}, aliceCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/data/note.json", nil, bobCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded map[string]string
	decodeBody(t, resp, &loaded)
	require.Equal(t, "alice", loaded["author"])
}

func TestChartWithoutMeasurementFile(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/chart/axial-length", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg chart.Config
	decodeBody(t, resp, &cfg)
	require.Equal(t, "Axial Length Growth Chart", cfg.Title)
	require.Len(t, cfg.Series, len(chart.Percentiles))
}

func TestChartWithMeasurements(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	payload := map[string]any{
		"patientName": "Kim",
		"measurements": []map[string]any{
			{"ageYears": 8, "axialLengthMM": 23.1},
			{"ageYears": 6, "axialLengthMM": 22.4},
		},
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/data/kim.json", payload, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/chart/axial-length?file=kim.json", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg chart.Config
	decodeBody(t, resp, &cfg)
	require.Len(t, cfg.Series, len(chart.Percentiles)+1)

	patient := cfg.Series[len(cfg.Series)-1]
	require.Equal(t, "Kim", patient.Name)
	require.Equal(t, chart.SeriesMeasurement, patient.Kind)
	// Measurements come back sorted by age.
	require.Equal(t, 6.0, patient.Points[0].X)
	require.Equal(t, 8.0, patient.Points[1].X)
}

func TestChartMissingFile(t *testing.T) {
	srv := newTestServer(t)
	cookie := loginAndGetCookie(t, srv, "alice", "alice@example.com", false, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/chart/axial-length?file=absent.json", nil, cookie)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
