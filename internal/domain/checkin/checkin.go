package checkin

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is a patient's self-reported state at a point in time. Scores run 1..10.
type CheckIn struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patientId"`
	MoodScore    int       `json:"moodScore"`
	AnxietyScore *int      `json:"anxietyScore,omitempty"`
	EnergyScore  *int      `json:"energyScore,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateCheckInRequest struct {
	MoodScore    int     `json:"moodScore" binding:"required,min=1,max=10"`
	AnxietyScore *int    `json:"anxietyScore" binding:"omitempty,min=1,max=10"`
	EnergyScore  *int    `json:"energyScore" binding:"omitempty,min=1,max=10"`
	Notes        *string `json:"notes" binding:"omitempty,max=2000"`
}

func NewFromCreateRequest(patientID string, req CreateCheckInRequest) CheckIn {
	return CheckIn{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		MoodScore:    req.MoodScore,
		AnxietyScore: req.AnxietyScore,
		EnergyScore:  req.EnergyScore,
		Notes:        req.Notes,
		CreatedAt:    time.Now().UTC(),
	}
}
