package domain

import "time"

// Notification records a message delivered to a user.
type Notification struct {
	ID      string
	UserID  *string
	Message string
	SentAt  time.Time
}

// EmailLog records an email handed to the mail layer.
type EmailLog struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	SentAt    time.Time
}
