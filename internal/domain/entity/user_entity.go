package entity

import "time"

// User is the aggregate root for the user domain. The ledger never
// stores credentials: RemoteID points at the identity-provider record
// that owns them. A user always references an existing role.
type User struct {
	ID                int64
	Name              string
	Email             string
	RemoteID          string
	Active            bool
	RoleID            int64
	Role              *Role
	AvatarURL         string
	DeleteScheduledAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DeletionDue reports whether the user's scheduled deletion has come due.
func (u *User) DeletionDue(now time.Time) bool {
	return u.DeleteScheduledAt != nil && !u.DeleteScheduledAt.After(now)
}
