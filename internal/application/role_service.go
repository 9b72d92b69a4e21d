package application

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/internal/domain/repository"
)

// EnsureOutcome tags what EnsureRole had to do so divergence repair is
// observable for auditing rather than silently idempotent.
type EnsureOutcome string

const (
	RoleCreated   EnsureOutcome = "created"
	RoleRepaired  EnsureOutcome = "repaired"
	RoleUnchanged EnsureOutcome = "already-consistent"
)

// RoleService keeps a named role consistent between the ledger and the
// identity provider. Defaults is the bootstrap role table (name to
// description); the names in Protected cannot be renamed afterwards.
type RoleService struct {
	Repo      repository.RoleRepository
	Gateway   RoleGateway
	Defaults  map[string]string
	Logger    *logrus.Logger
	protected map[string]bool
}

func NewRoleService(repo repository.RoleRepository, gw RoleGateway, defaults map[string]string, protected []string, logger *logrus.Logger) *RoleService {
	set := make(map[string]bool, len(protected))
	for _, name := range protected {
		set[name] = true
	}
	return &RoleService{
		Repo:      repo,
		Gateway:   gw,
		Defaults:  defaults,
		Logger:    logger,
		protected: set,
	}
}

// EnsureRole resolves a role to a consistent state across both stores.
// The remote side is written first; the ledger row only ever carries a
// remote id handed back by the provider.
func (s *RoleService) EnsureRole(ctx context.Context, name, description string) (*entity.Role, EnsureOutcome, error) {
	local, err := s.Repo.GetByName(ctx, name)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	if local != nil {
		remote, err := s.Gateway.GetRoleByName(ctx, name)
		if err != nil {
			return nil, "", err
		}
		if remote != nil {
			return local, RoleUnchanged, nil
		}

		// The ledger knows the role but the provider lost it. Recreate it
		// remotely and take the provider's response as authoritative.
		s.Logger.WithField("role", name).Warn("role missing on the identity provider, repairing")
		created, err := s.Gateway.CreateRole(ctx, name, description)
		if err != nil {
			return nil, "", err
		}
		local.RemoteID = created.ID
		local.Description = created.Description
		if err := s.Repo.Update(ctx, local); err != nil {
			return nil, "", err
		}
		return local, RoleRepaired, nil
	}

	// Absent locally. CreateRole resolves by name first, so this covers
	// both the fresh-create and the present-remotely-only cases.
	created, err := s.Gateway.CreateRole(ctx, name, description)
	if err != nil {
		return nil, "", err
	}

	role := &entity.Role{
		RemoteID:    created.ID,
		Name:        created.Name,
		Description: created.Description,
		Active:      true,
	}
	if err := s.Repo.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent request created the row between our lookup and
			// the insert; resolve to what the pre-check would have seen.
			existing, gerr := s.Repo.GetByName(ctx, name)
			if gerr != nil {
				return nil, "", gerr
			}
			return existing, RoleUnchanged, nil
		}
		return nil, "", err
	}

	s.Logger.WithFields(logrus.Fields{"role": role.Name, "remote_id": role.RemoteID}).Info("role created in both stores")
	return role, RoleCreated, nil
}

// EnsureDefaults reconciles the configured default role table. Called at
// bootstrap so every deployment has USER/ADMIN/OWNER in both stores.
func (s *RoleService) EnsureDefaults(ctx context.Context) error {
	names := make([]string, 0, len(s.Defaults))
	for name := range s.Defaults {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, outcome, err := s.EnsureRole(ctx, name, s.Defaults[name]); err != nil {
			return err
		} else if outcome != RoleUnchanged {
			s.Logger.WithFields(logrus.Fields{"role": name, "outcome": string(outcome)}).Info("default role reconciled")
		}
	}
	return nil
}

// RoleUpdateInput carries a partial update; nil fields stay unchanged.
type RoleUpdateInput struct {
	Name        *string
	Description *string
	Active      *bool
}

// Update applies only the provided fields. A name or description change
// is pushed to the provider before the ledger row is persisted, so a
// remote failure leaves the ledger untouched.
func (s *RoleService) Update(ctx context.Context, id int64, in RoleUpdateInput) (*entity.Role, error) {
	role, err := s.GetByIDOrFail(ctx, id, false)
	if err != nil {
		return nil, err
	}

	nameChanged := in.Name != nil && !strings.EqualFold(*in.Name, role.Name)
	descChanged := in.Description != nil && *in.Description != role.Description
	activeChanged := in.Active != nil && *in.Active != role.Active

	if nameChanged {
		if s.protected[role.Name] {
			return nil, ErrProtectedRole
		}
		existing, err := s.Repo.GetByName(ctx, *in.Name)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != role.ID {
			return nil, ErrRoleNameTaken
		}
		role.Name = *in.Name
	}
	if descChanged {
		role.Description = *in.Description
	}
	if activeChanged {
		role.Active = *in.Active
	}

	if nameChanged || descChanged {
		if err := s.Gateway.UpdateRole(ctx, role.RemoteID, role.Name, role.Description); err != nil {
			return nil, err
		}
	}

	if err := s.Repo.Update(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleNameTaken
		}
		return nil, err
	}
	return role, nil
}

func (s *RoleService) FindByID(ctx context.Context, id int64) (*entity.Role, error) {
	return s.GetByIDOrFail(ctx, id, false)
}

func (s *RoleService) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	return s.GetByNameOrFail(ctx, name, false)
}

func (s *RoleService) List(ctx context.Context) ([]*entity.Role, error) {
	return s.Repo.List(ctx)
}

// GetByIDOrFail loads a role, optionally requiring it to be active.
func (s *RoleService) GetByIDOrFail(ctx context.Context, id int64, verifyActive bool) (*entity.Role, error) {
	role, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verifyActive && !role.Active {
		return nil, ErrNotFound
	}
	return role, nil
}

// GetByNameOrFail loads a role by case-insensitive name, optionally
// requiring it to be active.
func (s *RoleService) GetByNameOrFail(ctx context.Context, name string, verifyActive bool) (*entity.Role, error) {
	role, err := s.Repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verifyActive && !role.Active {
		return nil, ErrNotFound
	}
	return role, nil
}
