package core

import "time"

// Message is an immutable direct message record. The storage entry is the
// authoritative record of a message; real-time delivery is best-effort.
type Message struct {
	ID          string    // Unique identifier for the message
	SenderID    string    // User ID of the sender
	RecipientID string    // User ID of the recipient
	Content     string    // Free text, never empty
	CreatedAt   time.Time // Server-assigned creation timestamp
}
