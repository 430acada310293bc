package account

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleTherapist Role = "THERAPIST"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleTherapist:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Account struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"` // never expose hash in JSON
	FirstName           string    `json:"firstName"`
	LastName            string    `json:"lastName,omitempty"`
	Role                Role      `json:"role"`
	AssignedTherapistID *string   `json:"therapistId"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (a Account) IsPatient() bool   { return a.Role == RolePatient }
func (a Account) IsTherapist() bool { return a.Role == RoleTherapist }

// IsAssignedTo reports whether a is a patient of therapistID.
func (a Account) IsAssignedTo(therapistID string) bool {
	return a.IsPatient() && a.AssignedTherapistID != nil && *a.AssignedTherapistID == therapistID
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email,max=254"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
	FirstName  string `json:"firstName" binding:"required,min=1,max=80"`
	LastName   string `json:"lastName" binding:"omitempty,max=80"`
	Role       Role   `json:"role" binding:"required,oneof=PATIENT THERAPIST"`
	InviteCode string `json:"inviteCode" binding:"omitempty,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// NormalizeEmail makes lookups case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func New(email, passwordHash, firstName, lastName string, role Role) Account {
	now := time.Now().UTC()

	return Account{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
