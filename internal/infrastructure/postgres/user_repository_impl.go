package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/internal/domain/repository"
)

const userColumns = `
	u.id, u.name, u.email, u.remote_id, u.active, u.role_id, u.avatar_url,
	u.delete_scheduled_at, u.created_at, u.updated_at,
	r.id, r.remote_id, r.name, r.description, r.active, r.created_at, r.updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{Role: &entity.Role{}}
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.RemoteID, &u.Active, &u.RoleID, &u.AvatarURL,
		&u.DeleteScheduledAt, &u.CreatedAt, &u.UpdatedAt,
		&u.Role.ID, &u.Role.RemoteID, &u.Role.Name, &u.Role.Description,
		&u.Role.Active, &u.Role.CreatedAt, &u.Role.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, remote_id, active, role_id, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.RemoteID, u.Active, u.RoleID, u.AvatarURL)

	return mapWriteError(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`, id))
}

func (r *UserRepository) GetByRemoteID(ctx context.Context, remoteID string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.remote_id = $1
	`, remoteID))
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`, email).Scan(&exists)
	return exists, err
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, email = $2, active = $3, role_id = $4, avatar_url = $5,
		    delete_scheduled_at = $6, updated_at = $7
		WHERE id = $8
	`, u.Name, u.Email, u.Active, u.RoleID, u.AvatarURL, u.DeleteScheduledAt, u.UpdatedAt, u.ID)
	if err != nil {
		return mapWriteError(err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u JOIN roles r ON r.id = u.role_id
		ORDER BY u.id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *UserRepository) ListByRole(ctx context.Context, roleID int64, limit, offset int) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.role_id = $1
		ORDER BY u.id
		LIMIT $2 OFFSET $3
	`, roleID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *UserRepository) ListDueForDeletion(ctx context.Context, now time.Time) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.delete_scheduled_at IS NOT NULL AND u.delete_scheduled_at <= $1
		ORDER BY u.delete_scheduled_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*entity.User, error) {
	var out []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var _ repository.UserRepository = (*UserRepository)(nil)
