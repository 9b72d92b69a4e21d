package application

import (
	"context"

	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
)

// IdentityGateway is the slice of the remote management API the user
// flows depend on. Implementations classify failures as transient
// (retried internally) or permanent before they reach this layer.
type IdentityGateway interface {
	CreateUser(ctx context.Context, email, password, name string) (*idp.RemoteUser, error)
	GetUser(ctx context.Context, remoteID string) (*idp.RemoteUser, error)
	DeleteUser(ctx context.Context, remoteID string) error
	SetName(ctx context.Context, remoteID, name string) error
	SetPassword(ctx context.Context, remoteID, password string) error
	SetPicture(ctx context.Context, remoteID, pictureURL string) error
	SetBlocked(ctx context.Context, remoteID string, blocked bool) error
	AssignRole(ctx context.Context, remoteUserID, remoteRoleID string) error
	ListUserRoles(ctx context.Context, remoteUserID string) ([]idp.RemoteRole, error)
}

// RoleGateway is the remote role surface used by the reconciler.
type RoleGateway interface {
	CreateRole(ctx context.Context, name, description string) (*idp.RemoteRole, error)
	UpdateRole(ctx context.Context, remoteID, name, description string) error
	GetRoleByName(ctx context.Context, name string) (*idp.RemoteRole, error)
}

var (
	_ IdentityGateway = (*idp.Client)(nil)
	_ RoleGateway     = (*idp.Client)(nil)
)
