package entity

import "time"

// Role is an authorization role mirrored between the ledger and the
// identity provider. RemoteID is empty until the role has been created
// on the provider side; Name is unique case-insensitively.
type Role struct {
	ID          int64
	RemoteID    string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
