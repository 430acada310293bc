package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// MessageCursor points at the last message of a page; the next page starts after it.
type MessageCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeMessageCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(MessageCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeMessageCursor(cursor string) (MessageCursor, error) {
	if cursor == "" {
		return MessageCursor{}, ErrInvalidCursor
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return MessageCursor{}, ErrInvalidCursor
	}
	var c MessageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return MessageCursor{}, ErrInvalidCursor
	}
	if !IsUUID(c.ID) || c.CreatedAt.IsZero() {
		return MessageCursor{}, ErrInvalidCursor
	}
	return c, nil
}
