package domain

import (
	"strings"
	"time"
)

// Client is one entry in the therapist's roster.
type Client struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Active    bool   `json:"active"`
}

func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Appointment is one synced calendar event. Attendees carries the raw
// attendee display names from the calendar provider.
type Appointment struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	StartsAt  time.Time `json:"starts_at"`
	Attendees []string  `json:"attendees,omitempty"`
}
