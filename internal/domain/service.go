package domain

import (
	"context"
	"io"
)

// Message is a transactional notification to one or more recipients.
type Message struct {
	Recipients []string
	Subject    string
	Body       string
}

// Receipt identifies a delivered message and the provider that carried it.
type Receipt struct {
	Provider  string `json:"provider"`
	MessageID string `json:"message_id"`
}

// Notifier defines the interface for delivering transactional messages
type Notifier interface {
	// Send delivers msg, returning a receipt on success. Implementations
	// own retry and fallback; an error means delivery is not going to
	// happen and callers must not assume the user was reached.
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// DocumentStore defines the interface for persisting uploaded KYC documents
type DocumentStore interface {
	// Put stores one document and returns a stable URL for it
	Put(ctx context.Context, slot, filename string, r io.Reader) (string, error)
}
