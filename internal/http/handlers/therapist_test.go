package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func setupTherapistRouter(f fixture, me account.Account) *gin.Engine {
	h := handlers.NewTherapistHandler(f.accounts, f.accounts)

	r := gin.New()
	g := r.Group("/api/therapist", as(me))
	g.GET("/patients", h.ListPatients)
	g.PATCH("/assign", h.Assign)
	g.GET("/patients/:patientId", h.GetPatient)
	g.DELETE("/patients/:patientId", h.Unassign)
	return r
}

func TestAssign(t *testing.T) {
	f := newFixture(t)

	// a fresh, unassigned patient
	fresh, err := f.accounts.Create(t.Context(), account.New("fresh@example.com", "hashed:x", "Fresh", "", account.RolePatient))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name       string
		email      string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown email", email: "nobody@example.com", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "not a patient", email: f.other.Email, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "owned by another therapist", email: f.stranger.Email, wantStatus: http.StatusConflict, wantCode: "already_assigned"},
		{name: "fresh patient", email: "FRESH@example.com", wantStatus: http.StatusOK},
		{name: "already mine", email: f.patient.Email, wantStatus: http.StatusOK},
	}

	r := setupTherapistRouter(f, f.therapist)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPatch, "/api/therapist/assign", map[string]string{"patientEmail": tt.email})
			mustStatus(t, w, tt.wantStatus)

			if tt.wantCode != "" {
				if body := decodeError(t, w); body.Error.Code != tt.wantCode {
					t.Fatalf("expected code %q, got %+v", tt.wantCode, body)
				}
			}
		})
	}

	got, err := f.accounts.GetByID(t.Context(), fresh.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.IsAssignedTo(f.therapist.ID) {
		t.Fatalf("expected fresh patient to be assigned")
	}
}

func TestListPatients_OnlyMine(t *testing.T) {
	f := newFixture(t)
	r := setupTherapistRouter(f, f.therapist)

	w := doJSON(r, http.MethodGet, "/api/therapist/patients", nil)
	mustStatus(t, w, http.StatusOK)

	if w.Header().Get("ETag") == "" {
		t.Fatalf("expected an ETag header")
	}

	var patients []account.Account
	if err := json.Unmarshal(w.Body.Bytes(), &patients); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(patients) != 1 || patients[0].ID != f.patient.ID {
		t.Fatalf("expected only my patient, got %+v", patients)
	}
}

func TestGetPatient_Ownership(t *testing.T) {
	f := newFixture(t)
	r := setupTherapistRouter(f, f.therapist)

	mustStatus(t, doJSON(r, http.MethodGet, "/api/therapist/patients/"+f.patient.ID, nil), http.StatusOK)
	mustStatus(t, doJSON(r, http.MethodGet, "/api/therapist/patients/"+f.stranger.ID, nil), http.StatusNotFound)
	mustStatus(t, doJSON(r, http.MethodGet, "/api/therapist/patients/not-a-uuid", nil), http.StatusBadRequest)
}

func TestUnassign(t *testing.T) {
	f := newFixture(t)
	r := setupTherapistRouter(f, f.therapist)

	mustStatus(t, doJSON(r, http.MethodDelete, "/api/therapist/patients/"+f.stranger.ID, nil), http.StatusNotFound)
	mustStatus(t, doJSON(r, http.MethodDelete, "/api/therapist/patients/"+f.patient.ID, nil), http.StatusOK)
	mustStatus(t, doJSON(r, http.MethodGet, "/api/therapist/patients/"+f.patient.ID, nil), http.StatusNotFound)
}
