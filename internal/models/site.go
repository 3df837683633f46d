package models

import "time"

// Site is a registered WordPress installation posts are published to
type Site struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Username    string    `json:"username"`
	AppPassword string    `json:"app_password"`
	CreatedAt   time.Time `json:"created_at"`
}
