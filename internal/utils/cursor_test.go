package utils

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMessageCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)
	id := uuid.NewString()

	cur, err := EncodeMessageCursor(at, id)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeMessageCursor(cur)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != id || !got.CreatedAt.Equal(at) {
		t.Fatalf("unexpected cursor %+v", got)
	}
}

func TestDecodeMessageCursor_Invalid(t *testing.T) {
	cases := []string{"", "%%%", "bm90LWpzb24", "e30"}

	for _, c := range cases {
		if _, err := DecodeMessageCursor(c); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("cursor %q: expected ErrInvalidCursor, got %v", c, err)
		}
	}
}

func TestDecodeMessageCursor_RejectsNonUUIDID(t *testing.T) {
	raw := `{"createdAt":"2024-01-01T00:00:00Z","id":"x"}`
	cur := base64.RawURLEncoding.EncodeToString([]byte(raw))

	if _, err := DecodeMessageCursor(cur); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor for non-uuid id, got %v", err)
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID(uuid.NewString()) {
		t.Fatal("expected generated uuid to be valid")
	}
	if IsUUID("not-a-uuid") {
		t.Fatal("expected garbage to be rejected")
	}
}
