package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/infra/config"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	"github.com/ryanle444/HealthCoach/internal/repository"
	"github.com/ryanle444/HealthCoach/internal/session"
	"github.com/ryanle444/HealthCoach/internal/transport/http/middleware"
	"github.com/ryanle444/HealthCoach/internal/usecase"
)

type memoryStore struct {
	users map[string]*domain.User
}

func (m *memoryStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryStore) Create(_ context.Context, user domain.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = &user
	return nil
}

func (m *memoryStore) RecordLogin(_ context.Context, id string, at time.Time) error {
	if u, ok := m.users[id]; ok {
		stamp := at
		u.LastLogin = &stamp
	}
	return nil
}

type fixedCodeSender struct {
	code string
}

func (s *fixedCodeSender) SendOneTimeCode(_ context.Context, _ string) (string, error) {
	return s.code, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "healthcoach", Env: "test"},
		Session: config.SessionSettings{
			CookieName:   "healthcoach_session",
			CookieSecret: "test-secret-test-secret-test-abcd",
			CookieTTL:    time.Hour,
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memoryStore, *fixedCodeSender) {
	t.Helper()

	encoded, err := security.HashPassword("gravel-orbit-lantern-9")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	store := &memoryStore{users: map[string]*domain.User{
		"user-1": {
			ID:               "user-1",
			Username:         "malloryq",
			Email:            "mallory@example.org",
			FirstName:        "Mallory",
			LastName:         "Quinn",
			PasswordEncoding: encoded,
			TwoFactorEnabled: true,
			CreatedAt:        time.Now().UTC(),
		},
	}}

	sender := &fixedCodeSender{code: "482913"}
	log := zap.NewNop()
	cfg := testConfig()

	sessions, err := middleware.NewSessionManager(session.NewRegistry(), cfg.Session, log)
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	challenges := usecase.NewChallengeManager(sender, log)
	loginService := usecase.NewLoginService(store, challenges, nil, log)
	registrationService := usecase.NewRegistrationService(store, nil, nil, log)

	engine := Register(Dependencies{
		Config:   cfg,
		Logger:   log,
		Sessions: sessions,
		Services: ServiceSet{
			Login:        loginService,
			Registration: registrationService,
			Users:        store,
		},
	})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return srv, store, sender
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func TestLoginConfirmProfileFlow(t *testing.T) {
	srv, _, sender := newTestServer(t)
	client := newCookieClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/auth/login", `{"username":"MalloryQ","password":"gravel-orbit-lantern-9"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["next"] != "confirm" {
		t.Fatalf("login next = %v, want confirm", body["next"])
	}

	// Profile is still locked while the code is pending.
	profileResp, err := client.Get(srv.URL + "/api/v1/profile")
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	profileResp.Body.Close()
	if profileResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("profile before confirm status = %d", profileResp.StatusCode)
	}

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/confirm", `{"code":"000000"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong code status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/confirm", `{"code":"`+sender.code+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d", resp.StatusCode)
	}
	body = decodeBody(t, resp)
	if body["next"] != "profile" {
		t.Fatalf("confirm next = %v, want profile", body["next"])
	}
	profile, ok := body["profile"].(map[string]any)
	if !ok {
		t.Fatalf("confirm response missing profile: %v", body)
	}
	if profile["username"] != "MalloryQ" {
		t.Fatalf("profile username = %v, want the one as entered", profile["username"])
	}

	profileResp, err = client.Get(srv.URL + "/api/v1/profile")
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	if profileResp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d", profileResp.StatusCode)
	}
	profileBody := decodeBody(t, profileResp)
	if profileBody["first_name"] != "Mallory" || profileBody["last_name"] != "Quinn" {
		t.Fatalf("profile names = %v %v", profileBody["first_name"], profileBody["last_name"])
	}

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/logout", `{}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	profileResp, err = client.Get(srv.URL + "/api/v1/profile")
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	profileResp.Body.Close()
	if profileResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("profile after logout status = %d", profileResp.StatusCode)
	}
}

func TestLoginRejectionsShareOneMessage(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newCookieClient(t)

	unknown := postJSON(t, client, srv.URL+"/api/v1/auth/login", `{"username":"ghost","password":"whatever-long"}`)
	if unknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", unknown.StatusCode)
	}
	unknownBody := decodeBody(t, unknown)

	wrongPass := postJSON(t, client, srv.URL+"/api/v1/auth/login", `{"username":"malloryq","password":"not-the-password"}`)
	if wrongPass.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", wrongPass.StatusCode)
	}
	wrongPassBody := decodeBody(t, wrongPass)

	if unknownBody["error"] != wrongPassBody["error"] {
		t.Fatalf("response messages differ: %v vs %v", unknownBody["error"], wrongPassBody["error"])
	}
}

func TestConfirmWithoutChallenge(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newCookieClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/auth/confirm", `{"code":"123456"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("confirm without challenge status = %d", resp.StatusCode)
	}
}

func TestSignupThenLogin(t *testing.T) {
	srv, store, _ := newTestServer(t)
	client := newCookieClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/auth/signup",
		`{"username":"pfine","email":"penelope@example.org","password":"quartz-meadow-7-violin","first_name":"Penelope","last_name":"Fine"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	created := decodeBody(t, resp)
	if created["username"] != "pfine" {
		t.Fatalf("signup username = %v", created["username"])
	}
	if len(store.users) != 2 {
		t.Fatalf("expected 2 stored users, got %d", len(store.users))
	}

	// New accounts default to single-factor, so login lands directly.
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/login", `{"username":"pfine","password":"quartz-meadow-7-violin"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["next"] != "profile" {
		t.Fatalf("login next = %v, want profile", body["next"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
}
