package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is homework a therapist hands to a patient between sessions.
type Task struct {
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

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var ErrNotFound = errors.New("task not found")

type CreateTaskRequest struct {
	PatientID   string     `json:"patientId" binding:"required,uuid"`
	Title       string     `json:"title" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdateTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
	Status      Status     `json:"status" binding:"required,oneof=pending completed"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=pending completed"`
}

func NewFromCreateRequest(therapistID string, req CreateTaskRequest) Task {
	now := time.Now().UTC()

	return Task{
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
