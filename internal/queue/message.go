// Package queue carries batch generation requests from the API to workers.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

// MessageVersion is the payload version written by NewMessage.
const MessageVersion = 1

// Client publishes batch requests.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message asks a worker to run batch generation for one application.
type Message struct {
	ApplicationID int64  `json:"applicationId"`
	RequestID     string `json:"requestId"`
	EnqueuedAt    string `json:"enqueuedAt"`
	Version       int    `json:"version"`
}

func NewMessage(applicationID int64, requestID string, now time.Time) Message {
	return Message{
		ApplicationID: applicationID,
		RequestID:     requestID,
		EnqueuedAt:    now.UTC().Format(time.RFC3339),
		Version:       MessageVersion,
	}
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(payload, &msg)
	return msg, err
}
