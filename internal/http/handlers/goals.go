package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/goal"
	"github.com/geocoder89/coter/internal/utils"
	"github.com/gin-gonic/gin"
)

type GoalStore interface {
	Create(ctx context.Context, g goal.Goal) (goal.Goal, error)
	GetByID(ctx context.Context, id string) (goal.Goal, error)
	ListByPatient(ctx context.Context, patientID string) ([]goal.Goal, error)
	Update(ctx context.Context, g goal.Goal) (goal.Goal, error)
	UpdateStatus(ctx context.Context, id string, status goal.Status) (goal.Goal, error)
	Delete(ctx context.Context, id string) error
}

type GoalsHandler struct {
	goals    GoalStore
	accounts AccountReader
}

func NewGoalsHandler(goals GoalStore, accounts AccountReader) *GoalsHandler {
	return &GoalsHandler{goals: goals, accounts: accounts}
}

// GET /api/goals/:patientId
func (h *GoalsHandler) ListForPatient(ctx *gin.Context) {
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

// GET /api/patient/goals
func (h *GoalsHandler) ListMine(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	h.list(ctx, me.ID)
}

func (h *GoalsHandler) list(ctx *gin.Context, patientID string) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	goals, err := h.goals.ListByPatient(cctx, patientID)

	if err != nil {
		RespondInternal(ctx, "Could not list goals", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, goals)
}

func (h *GoalsHandler) Create(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req goal.CreateGoalRequest

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

	g, err := h.goals.Create(cctx, goal.NewFromCreateRequest(me.ID, req))

	if err != nil {
		RespondInternal(ctx, "Could not create goal", err)
		return
	}

	RespondMessage(ctx, http.StatusCreated, "Goal created", gin.H{"goal": g})
}

func (h *GoalsHandler) Update(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req goal.UpdateGoalRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !trimTitle(ctx, &req.Title) {
		return
	}

	g, ok := h.ownedByTherapist(ctx, me, ctx.Param("goalId"))
	if !ok {
		return
	}

	g.Title = req.Title
	g.Description = req.Description
	g.Status = req.Status
	g.DueDate = req.DueDate

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.goals.Update(cctx, g)

	if err != nil {
		if errors.Is(err, goal.ErrNotFound) {
			RespondNotFound(ctx, "Goal not found")
			return
		}
		RespondInternal(ctx, "Could not update goal", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Goal updated", gin.H{"goal": updated})
}

func (h *GoalsHandler) Delete(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	g, ok := h.ownedByTherapist(ctx, me, ctx.Param("goalId"))
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.goals.Delete(cctx, g.ID); err != nil {
		if errors.Is(err, goal.ErrNotFound) {
			RespondNotFound(ctx, "Goal not found")
			return
		}
		RespondInternal(ctx, "Could not delete goal", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Goal deleted", nil)
}

// PATCH /api/patient/goals/:goalId
func (h *GoalsHandler) UpdateMyStatus(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req goal.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	g, ok := h.load(ctx, ctx.Param("goalId"))
	if !ok {
		return
	}

	if g.PatientID != me.ID {
		RespondNotFound(ctx, "Goal not found")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.goals.UpdateStatus(cctx, g.ID, req.Status)

	if err != nil {
		if errors.Is(err, goal.ErrNotFound) {
			RespondNotFound(ctx, "Goal not found")
			return
		}
		RespondInternal(ctx, "Could not update goal", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Goal status updated", gin.H{"goal": updated})
}

func (h *GoalsHandler) load(ctx *gin.Context, goalID string) (goal.Goal, bool) {
	if !utils.IsUUID(goalID) {
		RespondBadRequest(ctx, "goal id must be a valid UUID", nil)
		return goal.Goal{}, false
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	g, err := h.goals.GetByID(cctx, goalID)

	if err != nil {
		if errors.Is(err, goal.ErrNotFound) {
			RespondNotFound(ctx, "Goal not found")
			return goal.Goal{}, false
		}
		RespondInternal(ctx, "Could not load goal", err)
		return goal.Goal{}, false
	}

	return g, true
}

// ownedByTherapist loads the goal and checks its patient is currently assigned to me.
func (h *GoalsHandler) ownedByTherapist(ctx *gin.Context, me account.Account, goalID string) (goal.Goal, bool) {
	g, ok := h.load(ctx, goalID)
	if !ok {
		return goal.Goal{}, false
	}

	if _, err := lookupOwnedPatient(ctx.Request.Context(), h.accounts, me.ID, g.PatientID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, "Goal not found")
			return goal.Goal{}, false
		}
		RespondInternal(ctx, "Could not load goal", err)
		return goal.Goal{}, false
	}

	return g, true
}
