package models

import (
	"time"

	"github.com/google/uuid"
)

// Email delivery outcomes recorded by the worker.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog is one delivery attempt of an outbound email.
type EmailLog struct {
	ID           uuid.UUID `json:"id"`
	Recipient    string    `json:"recipient"`
	Template     string    `json:"template"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
