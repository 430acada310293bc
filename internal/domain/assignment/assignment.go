package assignment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Assignment links a patient to the single therapist responsible for them.
type Assignment struct {
	ID          string    `json:"id"`
	TherapistID string    `json:"therapistId"`
	PatientID   string    `json:"patientId"`
	CreatedAt   time.Time `json:"createdAt"`
}

var (
	ErrNotFound        = errors.New("assignment not found")
	ErrAlreadyAssigned = errors.New("patient is assigned to another therapist")
	ErrNotAPatient     = errors.New("account is not a patient")
)

type AssignRequest struct {
	PatientEmail string `json:"patientEmail" binding:"required,email"`
}

func New(therapistID, patientID string) Assignment {
	return Assignment{
		ID:          uuid.NewString(),
		TherapistID: therapistID,
		PatientID:   patientID,
		CreatedAt:   time.Now().UTC(),
	}
}
