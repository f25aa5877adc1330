// Package mail defines the outbound email transport contract. Senders must
// never leak whether the intended recipient exists; a delivery failure is a
// transport error, not an account oracle.
package mail

import "context"

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

// Sender delivers messages. Send returns an error only when the transport
// itself fails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
