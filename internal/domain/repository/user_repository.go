package repository

import (
	"context"
	"time"

	"github.com/idplane/identity-ledger/internal/domain/entity"
)

// UserRepository defines the ledger operations for users. Reads resolve
// the owning role as well.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)
	ListByRole(ctx context.Context, roleID int64, limit, offset int) ([]*entity.User, error)
	ListDueForDeletion(ctx context.Context, now time.Time) ([]*entity.User, error)
}
