package models

import "time"

// Editor is a client of the align service
type Editor struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	Username    string `json:"username"`    // JWT claim
	Email       string `json:"email"`       // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status

	// Connection state
	ConnectionID string    `json:"connection_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// Anonymous returns the editor used when authentication is disabled
func Anonymous() *Editor {
	return &Editor{
		ID:        "local",
		Username:  "local",
		Activated: 1,
	}
}

// IsActive checks if the editor account is activated and not banned
func (e *Editor) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return e.Activated > 0
}

// IsBanned checks if the editor is banned
func (e *Editor) IsBanned() bool {
	return e.Activated == -1
}

// StateKey is the key under which this editor's reference state is stored
func (e *Editor) StateKey() string {
	return "editor:" + e.ID
}
