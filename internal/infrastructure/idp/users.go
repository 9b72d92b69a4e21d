package idp

import (
	"context"
	"net/http"
	"net/url"
)

// defaultConnection is the provider-side credential database used for
// email/password signups.
const defaultConnection = "Username-Password-Authentication"

// RemoteUser is the identity record as the provider reports it.
type RemoteUser struct {
	ID      string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
}

type createUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Connection string `json:"connection"`
}

type userPatch struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
	Picture  *string `json:"picture,omitempty"`
	Blocked  *bool   `json:"blocked,omitempty"`
}

// CreateUser registers a new identity with the provider. The name falls
// back to the email when blank, matching the signup contract.
func (c *Client) CreateUser(ctx context.Context, email, password, name string) (*RemoteUser, error) {
	if name == "" {
		name = email
	}
	req := createUserRequest{Email: email, Password: password, Name: name, Connection: defaultConnection}
	var out RemoteUser
	if err := c.do(ctx, http.MethodPost, "/users", req, &out); err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.WithField("email", email).Info("remote identity created")
	}
	return &out, nil
}

// GetUser fetches the identity record by remote id.
func (c *Client) GetUser(ctx context.Context, remoteID string) (*RemoteUser, error) {
	var out RemoteUser
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(remoteID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes the identity from the provider.
func (c *Client) DeleteUser(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(remoteID), nil, nil)
}

// SetName updates the display name on the provider side.
func (c *Client) SetName(ctx context.Context, remoteID, name string) error {
	return c.patchUser(ctx, remoteID, userPatch{Name: &name})
}

// SetPassword replaces the credential held by the provider. Passwords
// are never persisted in the ledger.
func (c *Client) SetPassword(ctx context.Context, remoteID, password string) error {
	return c.patchUser(ctx, remoteID, userPatch{Password: &password})
}

// SetPicture updates the profile picture URL on the provider side.
func (c *Client) SetPicture(ctx context.Context, remoteID, pictureURL string) error {
	return c.patchUser(ctx, remoteID, userPatch{Picture: &pictureURL})
}

// SetBlocked toggles the provider-side login block. blocked=true means
// the user is deactivated.
func (c *Client) SetBlocked(ctx context.Context, remoteID string, blocked bool) error {
	return c.patchUser(ctx, remoteID, userPatch{Blocked: &blocked})
}

func (c *Client) patchUser(ctx context.Context, remoteID string, patch userPatch) error {
	return c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(remoteID), patch, nil)
}

type assignRolesRequest struct {
	Roles []string `json:"roles"`
}

// AssignRole grants the remote role to the identity. Assigning a role
// the user already holds is a no-op success on the provider side.
func (c *Client) AssignRole(ctx context.Context, remoteUserID, remoteRoleID string) error {
	req := assignRolesRequest{Roles: []string{remoteRoleID}}
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(remoteUserID)+"/roles", req, nil)
}

// ListUserRoles returns the roles currently assigned to the identity.
func (c *Client) ListUserRoles(ctx context.Context, remoteUserID string) ([]RemoteRole, error) {
	var out []RemoteRole
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(remoteUserID)+"/roles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
