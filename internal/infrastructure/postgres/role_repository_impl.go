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

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func scanRole(row pgx.Row) (*entity.Role, error) {
	r := &entity.Role{}
	if err := row.Scan(&r.ID, &r.RemoteID, &r.Name, &r.Description, &r.Active,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *entity.Role) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (remote_id, name, description, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, role.RemoteID, role.Name, role.Description, role.Active)

	return mapWriteError(row.Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt))
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		SELECT id, remote_id, name, description, active, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id))
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*entity.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		SELECT id, remote_id, name, description, active, created_at, updated_at
		FROM roles
		WHERE lower(name) = lower($1)
	`, name))
}

func (r *RoleRepository) Update(ctx context.Context, role *entity.Role) error {
	role.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE roles
		SET remote_id = $1, name = $2, description = $3, active = $4, updated_at = $5
		WHERE id = $6
	`, role.RemoteID, role.Name, role.Description, role.Active, role.UpdatedAt, role.ID)
	if err != nil {
		return mapWriteError(err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*entity.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, remote_id, name, description, active, created_at, updated_at
		FROM roles
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

var _ repository.RoleRepository = (*RoleRepository)(nil)
