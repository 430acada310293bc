package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/coter/internal/auth"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/geocoder89/coter/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// plainHasher keeps bcrypt out of handler tests.
type plainHasher struct {
	burned int
}

func (h *plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (h *plainHasher) Verify(plain, hash string) bool   { return hash == "hashed:"+plain }
func (h *plainHasher) Burn(string)                      { h.burned++ }

func newTokens(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager("handlers-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

// as stands in for Protect: it attaches a as the authenticated account.
func as(a account.Account) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxAccount, a)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Message string `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var b errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("body is not JSON: %v (%s)", err, w.Body.String())
	}
	return b
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, strings.TrimSpace(w.Body.String()))
	}
}

// seed creates accounts in a memory store and optionally assigns patients.
type fixture struct {
	accounts  *memory.AccountsRepo
	therapist account.Account
	other     account.Account
	patient   account.Account
	stranger  account.Account
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewAccountsRepo()

	create := func(email string, role account.Role) account.Account {
		a, err := repo.Create(ctx, account.New(email, "hashed:password123", "Name", "", role))
		if err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
		return a
	}

	f := fixture{
		accounts:  repo,
		therapist: create("therapist@example.com", account.RoleTherapist),
		other:     create("other@example.com", account.RoleTherapist),
		patient:   create("patient@example.com", account.RolePatient),
		stranger:  create("stranger@example.com", account.RolePatient),
	}

	var err error
	if f.patient, err = repo.Assign(ctx, f.therapist.ID, f.patient.Email, ""); err != nil {
		t.Fatalf("assign patient: %v", err)
	}
	if f.stranger, err = repo.Assign(ctx, f.other.ID, f.stranger.Email, ""); err != nil {
		t.Fatalf("assign stranger: %v", err)
	}
	return f
}
