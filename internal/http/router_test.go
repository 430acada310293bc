package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/coter/internal/auth"
	httpx "github.com/geocoder89/coter/internal/http"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/geocoder89/coter/internal/repo/memory"
	"github.com/geocoder89/coter/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, limiter middlewares.Limiter) *gin.Engine {
	t.Helper()

	tokens, err := auth.NewManager("router-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	accounts := memory.NewAccountsRepo()

	return httpx.NewRouter(httpx.Deps{
		Accounts:     accounts,
		Assigner:     accounts,
		Hasher:       security.NewHasher(bcrypt.MinCost),
		Tokens:       tokens,
		InviteCode:   "invite-me",
		AuthLimiter:  limiter,
		MaxBodyBytes: 1 << 20,
	})
}

func send(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, r http.Handler, email, role string) string {
	t.Helper()

	w := send(r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":      email,
		"password":   "password123",
		"firstName":  "Sam",
		"role":       role,
		"inviteCode": "invite-me",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("register response: %v %s", err, w.Body.String())
	}
	return resp.Token
}

func TestRouter_AuthFlow(t *testing.T) {
	r := newTestRouter(t, nil)

	register(t, r, "flow@example.com", "PATIENT")

	w := send(r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "flow@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	w = send(r, http.MethodGet, "/api/auth/me", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestRouter_RoleGates(t *testing.T) {
	r := newTestRouter(t, nil)

	patient := register(t, r, "p@example.com", "PATIENT")
	therapist := register(t, r, "t@example.com", "THERAPIST")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/therapist/patients", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/therapist/patients", "not.a.jwt", http.StatusUnauthorized},
		{"patient on therapist route", http.MethodGet, "/api/therapist/patients", patient, http.StatusForbidden},
		{"patient on goals", http.MethodGet, "/api/goals/00000000-0000-0000-0000-000000000000", patient, http.StatusForbidden},
		{"therapist on patient route", http.MethodGet, "/api/patient/me", therapist, http.StatusForbidden},
		{"therapist on own route", http.MethodGet, "/api/therapist/patients", therapist, http.StatusOK},
		{"patient on own route", http.MethodGet, "/api/patient/me", patient, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, tt.method, tt.path, tt.token, nil)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_AssignThenPatientSeesTherapist(t *testing.T) {
	r := newTestRouter(t, nil)

	patient := register(t, r, "assign-me@example.com", "PATIENT")
	therapist := register(t, r, "doc@example.com", "THERAPIST")

	w := send(r, http.MethodPatch, "/api/therapist/assign", therapist, map[string]string{"patientEmail": "assign-me@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", w.Code, w.Body.String())
	}

	w = send(r, http.MethodGet, "/api/patient/me", patient, nil)

	var resp struct {
		Patient struct {
			TherapistID *string `json:"therapistId"`
		} `json:"patient"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Patient.TherapistID == nil {
		t.Fatalf("expected the live account to carry the assignment: %s", w.Body.String())
	}
}

func TestRouter_AuthRateLimit(t *testing.T) {
	r := newTestRouter(t, middlewares.NewRateLimiter(2, time.Minute))

	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}

	for i := 0; i < 2; i++ {
		if w := send(r, http.MethodPost, "/api/auth/login", "", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	w := send(r, http.MethodPost, "/api/auth/login", "", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestRouter_FallbacksAreJSON(t *testing.T) {
	r := newTestRouter(t, nil)

	w := send(r, http.MethodGet, "/api/nope", "", nil)
	if w.Code != http.StatusNotFound || !json.Valid(w.Body.Bytes()) {
		t.Fatalf("expected JSON 404, got %d %s", w.Code, w.Body.String())
	}

	w = send(r, http.MethodDelete, "/api/auth/login", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`email=x`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}

	if w := send(r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
}
