package domain

import "time"

// Review is one rating left on a service.
type Review struct {
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name,omitempty"`
	Text      string    `json:"text,omitempty"`
}
