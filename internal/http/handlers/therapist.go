package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/assignment"
	"github.com/gin-gonic/gin"
)

type PatientDirectory interface {
	AccountReader
	ListPatientsByTherapist(ctx context.Context, therapistID string) ([]account.Account, error)
}

type Assigner interface {
	Assign(ctx context.Context, therapistID, patientEmail, requestID string) (account.Account, error)
	Unassign(ctx context.Context, therapistID, patientID string) error
}

type TherapistHandler struct {
	accounts PatientDirectory
	assigner Assigner
}

func NewTherapistHandler(accounts PatientDirectory, assigner Assigner) *TherapistHandler {
	return &TherapistHandler{accounts: accounts, assigner: assigner}
}

func (h *TherapistHandler) ListPatients(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	patients, err := h.accounts.ListPatientsByTherapist(cctx, me.ID)

	if err != nil {
		RespondInternal(ctx, "Could not list patients", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, patients)
}

func (h *TherapistHandler) Assign(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req assignment.AssignRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	patient, err := h.assigner.Assign(cctx, me.ID, req.PatientEmail, requestIDFrom(ctx))

	if err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			RespondNotFound(ctx, "No patient found with this email")
		case errors.Is(err, assignment.ErrNotAPatient):
			RespondBadRequest(ctx, "Only patient accounts can be assigned", nil)
		case errors.Is(err, assignment.ErrAlreadyAssigned):
			RespondConflict(ctx, "already_assigned", "This patient is already assigned to another therapist")
		default:
			RespondInternal(ctx, "Could not assign patient", err)
		}
		return
	}

	RespondMessage(ctx, http.StatusOK, "Patient assigned", gin.H{"patient": patient})
}

func (h *TherapistHandler) GetPatient(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	patient, ok := ownedPatient(ctx, h.accounts, me, ctx.Param("patientId"))
	if !ok {
		return
	}

	RespondMessage(ctx, http.StatusOK, "Patient loaded", gin.H{"patient": patient})
}

func (h *TherapistHandler) Unassign(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	patientID := ctx.Param("patientId")

	if _, ok := ownedPatient(ctx, h.accounts, me, patientID); !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	err := h.assigner.Unassign(cctx, me.ID, patientID)

	if err != nil {
		if errors.Is(err, assignment.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return
		}
		RespondInternal(ctx, "Could not unassign patient", err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Patient unassigned", nil)
}
