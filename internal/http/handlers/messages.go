package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/message"
	"github.com/geocoder89/coter/internal/utils"
	"github.com/gin-gonic/gin"
)

type MessageStore interface {
	Send(ctx context.Context, m message.Message, requestID string) (message.Message, error)
	ListConversation(ctx context.Context, f message.ListFilter) ([]message.Message, *string, bool, error)
}

type MessagesHandler struct {
	messages MessageStore
	accounts AccountReader
}

func NewMessagesHandler(messages MessageStore, accounts AccountReader) *MessagesHandler {
	return &MessagesHandler{messages: messages, accounts: accounts}
}

const (
	defaultMessagePage = 50
	maxMessagePage     = 100
)

// pageFilter reads ?limit and ?cursor; it writes the 400 itself on bad input.
func pageFilter(ctx *gin.Context, a, b string) (message.ListFilter, bool) {
	f := message.ListFilter{A: a, B: b, Limit: defaultMessagePage}

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxMessagePage {
			RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
			return message.ListFilter{}, false
		}
		f.Limit = n
	}

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeMessageCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "invalid cursor", nil)
			return message.ListFilter{}, false
		}
		f.AfterCreatedAt = cur.CreatedAt
		f.AfterID = cur.ID
	}

	return f, true
}

func (h *MessagesHandler) list(ctx *gin.Context, f message.ListFilter) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	items, next, hasMore, err := h.messages.ListConversation(cctx, f)

	if err != nil {
		RespondInternal(ctx, "Could not load messages", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":      items,
		"nextCursor": next,
		"hasMore":    hasMore,
	})
}

func (h *MessagesHandler) send(ctx *gin.Context, senderID, receiverID, content string) {
	m := message.New(senderID, receiverID, content)

	if m.Content == "" {
		RespondBadRequest(ctx, "message content cannot be blank", nil)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	sent, err := h.messages.Send(cctx, m, requestIDFrom(ctx))

	if err != nil {
		RespondInternal(ctx, "Could not send message", err)
		return
	}

	RespondMessage(ctx, http.StatusCreated, "Message sent", gin.H{"data": sent})
}

// GET /api/messages/:patientId
func (h *MessagesHandler) TherapistList(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	patient, ok := ownedPatient(ctx, h.accounts, me, ctx.Param("patientId"))
	if !ok {
		return
	}

	f, ok := pageFilter(ctx, me.ID, patient.ID)
	if !ok {
		return
	}

	h.list(ctx, f)
}

// POST /api/messages
func (h *MessagesHandler) TherapistSend(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req message.TherapistSendRequest

	if !BindJSON(ctx, &req) {
		return
	}

	patient, ok := ownedPatient(ctx, h.accounts, me, req.ReceiverID)
	if !ok {
		return
	}

	h.send(ctx, me.ID, patient.ID, req.Content)
}

// GET /api/patient/messages
func (h *MessagesHandler) PatientList(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	therapistID, assigned := assignedTherapist(me)
	if !assigned {
		ctx.JSON(http.StatusOK, gin.H{
			"items":      []message.Message{},
			"nextCursor": nil,
			"hasMore":    false,
		})
		return
	}

	f, ok := pageFilter(ctx, me.ID, therapistID)
	if !ok {
		return
	}

	h.list(ctx, f)
}

// POST /api/patient/messages
func (h *MessagesHandler) PatientSend(ctx *gin.Context) {
	me, ok := currentAccount(ctx)
	if !ok {
		return
	}

	var req message.PatientSendRequest

	if !BindJSON(ctx, &req) {
		return
	}

	therapistID, assigned := assignedTherapist(me)
	if !assigned {
		RespondForbidden(ctx, "You do not have an assigned therapist yet")
		return
	}

	if req.ReceiverID != "" && req.ReceiverID != therapistID {
		RespondForbidden(ctx, "You can only message your assigned therapist")
		return
	}

	h.send(ctx, me.ID, therapistID, req.Content)
}

func assignedTherapist(a account.Account) (string, bool) {
	if a.AssignedTherapistID == nil || *a.AssignedTherapistID == "" {
		return "", false
	}
	return *a.AssignedTherapistID, true
}
