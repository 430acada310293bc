package goal

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var ErrNotFound = errors.New("goal not found")

type Goal struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patientId"`
	TherapistID string     `json:"therapistId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateGoalRequest struct {
	PatientID   string     `json:"patientId" binding:"required,uuid"`
	Title       string     `json:"title" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"omitempty,max=1000"`
	DueDate     *time.Time `json:"dueDate"`
}

// a full update payload
type UpdateGoalRequest struct {
	Title       string     `json:"title" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"omitempty,max=1000"`
	Status      Status     `json:"status" binding:"required,oneof=pending in_progress completed"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=pending in_progress completed"`
}

func NewFromCreateRequest(therapistID string, req CreateGoalRequest) Goal {
	now := time.Now().UTC()

	return Goal{
		ID:          uuid.NewString(),
		PatientID:   req.PatientID,
		TherapistID: therapistID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      StatusPending,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
