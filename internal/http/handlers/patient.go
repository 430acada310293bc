package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PatientProfile serves GET /api/patient/me from the account the auth gate loaded.
func PatientProfile(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	RespondMessage(ctx, http.StatusOK, "Profile loaded", gin.H{"patient": me})
}
