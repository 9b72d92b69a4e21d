package idp

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/idplane/identity-ledger/pkg/helpers"
)

const roleCacheKey = "idp:roles"

// RemoteRole is the role record as the provider reports it.
type RemoteRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListRoles returns every role known to the provider. Results are
// cached in Redis for a short TTL; mutations invalidate the cache.
func (c *Client) ListRoles(ctx context.Context) ([]RemoteRole, error) {
	if c.rdb != nil {
		var cached []RemoteRole
		if ok, err := helpers.RedisGetJSON(ctx, c.rdb, roleCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	var out []RemoteRole
	if err := c.do(ctx, http.MethodGet, "/roles", nil, &out); err != nil {
		return nil, err
	}

	if c.rdb != nil && c.roleCacheTTL > 0 {
		if err := helpers.RedisSetJSON(ctx, c.rdb, roleCacheKey, out, c.roleCacheTTL); err != nil && c.logger != nil {
			c.logger.WithError(err).Warn("idp role cache write failed")
		}
	}
	return out, nil
}

// GetRoleByName resolves a remote role by case-insensitive name.
// A nil role with a nil error means the provider has no such role.
func (c *Client) GetRoleByName(ctx context.Context, name string) (*RemoteRole, error) {
	roles, err := c.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if strings.EqualFold(roles[i].Name, name) {
			return &roles[i], nil
		}
	}
	return nil, nil
}

// CreateRole creates the role on the provider unless a role with that
// name already exists, in which case the existing record is returned.
// A blind create would mint a second remote role under the same name
// and break the uniqueness the ledger enforces.
func (c *Client) CreateRole(ctx context.Context, name, description string) (*RemoteRole, error) {
	existing, err := c.GetRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if c.logger != nil {
			c.logger.WithField("role", name).Info("remote role already exists")
		}
		return existing, nil
	}

	var out RemoteRole
	if err := c.do(ctx, http.MethodPost, "/roles", roleRequest{Name: name, Description: description}, &out); err != nil {
		return nil, err
	}
	c.invalidateRoleCache(ctx)
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"role": name, "remote_id": out.ID}).Info("remote role created")
	}
	return &out, nil
}

// UpdateRole pushes a name/description change to the provider.
func (c *Client) UpdateRole(ctx context.Context, remoteID, name, description string) error {
	err := c.do(ctx, http.MethodPatch, "/roles/"+url.PathEscape(remoteID), roleRequest{Name: name, Description: description}, nil)
	if err != nil {
		return err
	}
	c.invalidateRoleCache(ctx)
	return nil
}

func (c *Client) invalidateRoleCache(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := helpers.RedisDel(ctx, c.rdb, roleCacheKey); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("idp role cache invalidation failed")
	}
}
