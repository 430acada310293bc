package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/task"
	"github.com/geocoder89/coter/internal/utils"
	"github.com/gin-gonic/gin"
)

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	ListByPatient(ctx context.Context, patientID string) ([]task.Task, error)
	Update(ctx context.Context, t task.Task) (task.Task, error)
	UpdateStatus(ctx context.Context, id string, status task.Status) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

type TasksHandler struct {
	tasks    TaskStore
	accounts AccountReader
}

func NewTasksHandler(tasks TaskStore, accounts AccountReader) *TasksHandler {
	return &TasksHandler{tasks: tasks, accounts: accounts}
}

// GET /api/tasks/:patientId
func (h *TasksHandler) ListForPatient(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	patient, ok := ownedPatient(ctx, h.accounts, me, ctx.Param("patientId"))
	if !ok {
		return
	}

	h.list(ctx, patient.ID)
}

// GET /api/patient/tasks
func (h *TasksHandler) ListMine(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	h.list(ctx, me.ID)
}

func (h *TasksHandler) list(ctx *gin.Context, patientID string) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	tasks, err := h.tasks.ListByPatient(cctx, patientID)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, tasks)
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !trimTitle(ctx, &req.Title) {
		return
	}

	if _, ok := ownedPatient(ctx, h.accounts, me, req.PatientID); !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	t, err := h.tasks.Create(cctx, task.NewFromCreateRequest(me.ID, req))

	if err != nil {
		RespondInternal(ctx, "Could not create task", err)
		return
	}

	RespondMessage(ctx, http.StatusCreated, "Task created", gin.H{"task": t})
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !trimTitle(ctx, &req.Title) {
		return
	}

	t, ok := h.ownedByTherapist(ctx, me, ctx.Param("taskId"))
	if !ok {
		return
	}

	t.Title = req.Title
	t.Description = req.Description
	t.Status = req.Status
	t.DueDate = req.DueDate

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.tasks.Update(cctx, t)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not update task", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Task updated", gin.H{"task": updated})
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	t, ok := h.ownedByTherapist(ctx, me, ctx.Param("taskId"))
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.tasks.Delete(cctx, t.ID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not delete task", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Task deleted", nil)
}

// PATCH /api/patient/tasks/:taskId
func (h *TasksHandler) UpdateMyStatus(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req task.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	t, ok := h.load(ctx, ctx.Param("taskId"))
	if !ok {
		return
	}

	if t.PatientID != me.ID {
		RespondNotFound(ctx, "Task not found")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.tasks.UpdateStatus(cctx, t.ID, req.Status)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not update task", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Task status updated", gin.H{"task": updated})
}

func (h *TasksHandler) load(ctx *gin.Context, taskID string) (task.Task, bool) {
	if !utils.IsUUID(taskID) {
		RespondBadRequest(ctx, "task id must be a valid UUID", nil)
		return task.Task{}, false
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	t, err := h.tasks.GetByID(cctx, taskID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return task.Task{}, false
		}
		RespondInternal(ctx, "Could not load task", err)
		return task.Task{}, false
	}

	return t, true
}

func (h *TasksHandler) ownedByTherapist(ctx *gin.Context, me account.Account, taskID string) (task.Task, bool) {
	t, ok := h.load(ctx, taskID)
	if !ok {
		return task.Task{}, false
	}

	if _, err := lookupOwnedPatient(ctx.Request.Context(), h.accounts, me.ID, t.PatientID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return task.Task{}, false
		}
		RespondInternal(ctx, "Could not load task", err)
		return task.Task{}, false
	}

	return t, true
}
