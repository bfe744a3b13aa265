package models

import "time"

// Service is an entry in the services catalog shown to signed-in users.
type Service struct {
	ID          string
	Name        string
	Description string
	URL         string
	Icon        string
	CreatedAt   time.Time
}
