package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/geocoder89/coter/internal/utils"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 2 * time.Second

type AccountReader interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// currentAccount returns the account attached by the auth gate, answering 401 itself when absent.
func currentAccount(ctx *gin.Context) (account.Account, bool) {
	a, ok := middlewares.AccountFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return account.Account{}, false
	}
	return a, true
}

// lookupOwnedPatient returns account.ErrNotFound both for missing patients and
// for patients assigned to someone else.
func lookupOwnedPatient(ctx context.Context, accounts AccountReader, therapistID, patientID string) (account.Account, error) {
	cctx, cancel := config.WithTimeout(ctx, storeTimeout)
	defer cancel()

	p, err := accounts.GetByID(cctx, patientID)
	if err != nil {
		return account.Account{}, err
	}

	if !p.IsAssignedTo(therapistID) {
		return account.Account{}, account.ErrNotFound
	}

	return p, nil
}

// ownedPatient is lookupOwnedPatient for a patient id taken from the request;
// it writes the 400/404/500 response itself.
func ownedPatient(ctx *gin.Context, accounts AccountReader, therapist account.Account, patientID string) (account.Account, bool) {
	if !utils.IsUUID(patientID) {
		RespondBadRequest(ctx, "patient id must be a valid UUID", nil)
		return account.Account{}, false
	}

	p, err := lookupOwnedPatient(ctx.Request.Context(), accounts, therapist.ID, patientID)

	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return account.Account{}, false
		}
		RespondInternal(ctx, "Could not load patient", err)
		return account.Account{}, false
	}

	return p, true
}
