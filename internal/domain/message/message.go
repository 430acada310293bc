package message

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

var ErrNoConversation = errors.New("no conversation with this account")

// PatientSendRequest is what a patient posts; the receiver defaults to the assigned therapist.
type PatientSendRequest struct {
	ReceiverID string `json:"receiverId" binding:"omitempty,uuid"`
	Content    string `json:"content" binding:"required,min=1,max=4000"`
}

type TherapistSendRequest struct {
	ReceiverID string `json:"receiverId" binding:"required,uuid"`
	Content    string `json:"content" binding:"required,min=1,max=4000"`
}

// ListFilter selects the conversation between two accounts in chronological order.
type ListFilter struct {
	A, B           string
	Limit          int
	AfterCreatedAt time.Time
	AfterID        string
}

func New(senderID, receiverID, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    strings.TrimSpace(content),
		CreatedAt:  time.Now().UTC(),
	}
}
