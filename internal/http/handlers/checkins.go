package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/checkin"
	"github.com/gin-gonic/gin"
)

type CheckInStore interface {
	Create(ctx context.Context, c checkin.CheckIn) (checkin.CheckIn, error)
	ListByPatient(ctx context.Context, patientID string) ([]checkin.CheckIn, error)
}

type CheckInsHandler struct {
	checkins CheckInStore
	accounts AccountReader
}

func NewCheckInsHandler(checkins CheckInStore, accounts AccountReader) *CheckInsHandler {
	return &CheckInsHandler{checkins: checkins, accounts: accounts}
}

// POST /api/patient/checkin
func (h *CheckInsHandler) Create(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req checkin.CreateCheckInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	c, err := h.checkins.Create(cctx, checkin.NewFromCreateRequest(me.ID, req))

	if err != nil {
		RespondInternal(ctx, "Could not save check-in", err)
		return
	}

	RespondMessage(ctx, http.StatusCreated, "Check-in saved", gin.H{"checkin": c})
}

// GET /api/patient/checkins
func (h *CheckInsHandler) ListMine(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	h.list(ctx, me.ID)
}

// GET /api/therapist/patients/:patientId/checkins
func (h *CheckInsHandler) ListForPatient(ctx *gin.Context) {
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

func (h *CheckInsHandler) list(ctx *gin.Context, patientID string) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	items, err := h.checkins.ListByPatient(cctx, patientID)

	if err != nil {
		RespondInternal(ctx, "Could not list check-ins", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}
