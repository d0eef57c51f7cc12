package domain

import "time"

// Integration is one (user, vendor) connection. It is the sole holder of
// vendor credentials; the observation store never sees them.
type Integration struct {
	ID             string
	Vendor         Source
	AccessToken    string
	RefreshToken   string
	ExternalUserID string
	Scope          string
	ExpiresAt      *time.Time

	// Garmin stores an encrypted credential pair instead of OAuth tokens.
	GarminEmail    string
	GarminPassword string

	UserID    string
	CreatedAt time.Time
}

// TokenUpdate carries the fields mutated in place on a successful OAuth
// refresh.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    time.Time
}
