package model

import "time"

// Portfolio binds one GitHub username to one owner.
//
// GitHubUsername is unique across all owners (case-insensitively), and at most
// one portfolio per OwnerID has IsActive set. OwnerEmail is not a column; it
// is filled from the join on users when a portfolio is read back.
type Portfolio struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	OwnerEmail     string    `json:"email,omitempty"`
	GitHubUsername string    `json:"github_username"`
	PublicURL      string    `json:"public_url"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
