package repository

import (
	"context"

	"github.com/idplane/identity-ledger/internal/domain/entity"
)

// RoleRepository defines the ledger operations for roles. Name lookups
// are case-insensitive.
type RoleRepository interface {
	Create(ctx context.Context, r *entity.Role) error
	GetByID(ctx context.Context, id int64) (*entity.Role, error)
	GetByName(ctx context.Context, name string) (*entity.Role, error)
	Update(ctx context.Context, r *entity.Role) error
	List(ctx context.Context) ([]*entity.Role, error)
}
