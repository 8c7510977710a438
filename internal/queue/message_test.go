package queue

import (
	"strings"
	"testing"
	"time"
)

func TestMessageWireFormat(t *testing.T) {
	now := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	payload, err := EncodeMessage(NewMessage(42, "request-456", now))
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	want := `{"applicationId":42,"requestId":"request-456","enqueuedAt":"2026-10-19T08:00:00Z","version":1}`
	if string(payload) != want {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"applicationId":7,"requestId":"r"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.ApplicationID != 7 || msg.RequestID != "r" {
		t.Fatalf("unexpected message %+v", msg)
	}

	_, err = DecodeMessage([]byte(`{"applicationId":"abc"}`))
	if err == nil || !strings.Contains(err.Error(), "applicationId") {
		t.Fatalf("expected type error for string id, got %v", err)
	}
}
