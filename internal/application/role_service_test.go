package application

import (
	"context"
	"errors"
	"testing"

	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/internal/domain/repository"
	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
)

func newRoleService(repo *mockRoleRepo, gw *mockGateway) *RoleService {
	return NewRoleService(repo, gw,
		map[string]string{"USER": "base", "ADMIN": "admins", "OWNER": "owners"},
		[]string{"USER", "ADMIN"},
		quietLogger())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestEnsureRoleCreatesInBothStores(t *testing.T) {
	var created *entity.Role
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(ctx context.Context, r *entity.Role) error {
			r.ID = 7
			created = r
			return nil
		},
	}
	gw := &mockGateway{
		CreateRoleFn: func(ctx context.Context, name, description string) (*idp.RemoteRole, error) {
			return &idp.RemoteRole{ID: "rol_1", Name: name, Description: description}, nil
		},
	}

	role, outcome, err := newRoleService(repo, gw).EnsureRole(context.Background(), "EDITOR", "writes")
	if err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if outcome != RoleCreated {
		t.Errorf("outcome = %q", outcome)
	}
	if role.RemoteID != "rol_1" || !role.Active {
		t.Errorf("role = %+v", role)
	}
	if created == nil {
		t.Fatal("ledger row not written")
	}
}

func TestEnsureRoleUnchangedWhenConsistent(t *testing.T) {
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return &entity.Role{ID: 1, RemoteID: "rol_1", Name: "USER", Active: true}, nil
		},
	}
	gw := &mockGateway{
		GetRoleByNameFn: func(ctx context.Context, name string) (*idp.RemoteRole, error) {
			return &idp.RemoteRole{ID: "rol_1", Name: "USER"}, nil
		},
	}

	_, outcome, err := newRoleService(repo, gw).EnsureRole(context.Background(), "USER", "base")
	if err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if outcome != RoleUnchanged {
		t.Errorf("outcome = %q", outcome)
	}
}

func TestEnsureRoleRepairsMissingRemote(t *testing.T) {
	local := &entity.Role{ID: 1, RemoteID: "rol_old", Name: "USER", Active: true}
	var updated *entity.Role
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) { return local, nil },
		UpdateFn: func(ctx context.Context, r *entity.Role) error {
			updated = r
			return nil
		},
	}
	gw := &mockGateway{
		GetRoleByNameFn: func(ctx context.Context, name string) (*idp.RemoteRole, error) { return nil, nil },
		CreateRoleFn: func(ctx context.Context, name, description string) (*idp.RemoteRole, error) {
			return &idp.RemoteRole{ID: "rol_fresh", Name: name, Description: description}, nil
		},
	}

	role, outcome, err := newRoleService(repo, gw).EnsureRole(context.Background(), "USER", "base")
	if err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if outcome != RoleRepaired {
		t.Errorf("outcome = %q", outcome)
	}
	if role.RemoteID != "rol_fresh" {
		t.Errorf("remote id not refreshed: %+v", role)
	}
	if updated == nil {
		t.Fatal("repaired row not persisted")
	}
}

func TestEnsureRoleAdoptsRemoteOnlyRole(t *testing.T) {
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(ctx context.Context, r *entity.Role) error { r.ID = 3; return nil },
	}
	gw := &mockGateway{
		// CreateRole resolves by name first, so a remote-only role comes
		// back with its existing id.
		CreateRoleFn: func(ctx context.Context, name, description string) (*idp.RemoteRole, error) {
			return &idp.RemoteRole{ID: "rol_existing", Name: name}, nil
		},
	}

	role, outcome, err := newRoleService(repo, gw).EnsureRole(context.Background(), "OWNER", "owners")
	if err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if outcome != RoleCreated {
		t.Errorf("outcome = %q", outcome)
	}
	if role.RemoteID != "rol_existing" {
		t.Errorf("role = %+v", role)
	}
}

func TestEnsureRoleResolvesInsertRace(t *testing.T) {
	winner := &entity.Role{ID: 9, RemoteID: "rol_1", Name: "EDITOR", Active: true}
	calls := 0
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			calls++
			if calls == 1 {
				return nil, repository.ErrNotFound
			}
			return winner, nil
		},
		CreateFn: func(ctx context.Context, r *entity.Role) error { return repository.ErrDuplicate },
	}
	gw := &mockGateway{
		CreateRoleFn: func(ctx context.Context, name, description string) (*idp.RemoteRole, error) {
			return &idp.RemoteRole{ID: "rol_1", Name: name}, nil
		},
	}

	role, outcome, err := newRoleService(repo, gw).EnsureRole(context.Background(), "EDITOR", "writes")
	if err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if outcome != RoleUnchanged {
		t.Errorf("outcome = %q", outcome)
	}
	if role != winner {
		t.Errorf("expected the concurrently created row, got %+v", role)
	}
}

func TestUpdateRejectsProtectedRename(t *testing.T) {
	repo := &mockRoleRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.Role, error) {
			return &entity.Role{ID: 1, RemoteID: "rol_1", Name: "USER", Active: true}, nil
		},
	}
	svc := newRoleService(repo, &mockGateway{})

	_, err := svc.Update(context.Background(), 1, RoleUpdateInput{Name: strPtr("MEMBER")})
	if !errors.Is(err, ErrProtectedRole) {
		t.Fatalf("expected ErrProtectedRole, got %v", err)
	}
}

func TestUpdateAllowsDescriptionChangeOnProtectedRole(t *testing.T) {
	var pushedName, pushedDesc string
	var persisted *entity.Role
	repo := &mockRoleRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.Role, error) {
			return &entity.Role{ID: 1, RemoteID: "rol_1", Name: "USER", Description: "old", Active: true}, nil
		},
		UpdateFn: func(ctx context.Context, r *entity.Role) error { persisted = r; return nil },
	}
	gw := &mockGateway{
		UpdateRoleFn: func(ctx context.Context, remoteID, name, description string) error {
			pushedName, pushedDesc = name, description
			return nil
		},
	}

	role, err := newRoleService(repo, gw).Update(context.Background(), 1, RoleUpdateInput{Description: strPtr("new text")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if role.Description != "new text" || pushedName != "USER" || pushedDesc != "new text" {
		t.Errorf("role=%+v pushed=%q/%q", role, pushedName, pushedDesc)
	}
	if persisted == nil {
		t.Fatal("ledger row not persisted")
	}
}

func TestUpdateRejectsTakenName(t *testing.T) {
	repo := &mockRoleRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.Role, error) {
			return &entity.Role{ID: 5, RemoteID: "rol_5", Name: "EDITOR", Active: true}, nil
		},
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return &entity.Role{ID: 6, Name: "REVIEWER"}, nil
		},
	}

	_, err := newRoleService(repo, &mockGateway{}).Update(context.Background(), 5, RoleUpdateInput{Name: strPtr("REVIEWER")})
	if !errors.Is(err, ErrRoleNameTaken) {
		t.Fatalf("expected ErrRoleNameTaken, got %v", err)
	}
}

func TestUpdateKeepsLedgerWhenRemotePushFails(t *testing.T) {
	boom := errors.New("remote down")
	repo := &mockRoleRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.Role, error) {
			return &entity.Role{ID: 5, RemoteID: "rol_5", Name: "EDITOR", Active: true}, nil
		},
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return nil, repository.ErrNotFound
		},
		UpdateFn: func(ctx context.Context, r *entity.Role) error {
			t.Fatal("ledger must not be written when the remote push fails")
			return nil
		},
	}
	gw := &mockGateway{
		UpdateRoleFn: func(ctx context.Context, remoteID, name, description string) error { return boom },
	}

	_, err := newRoleService(repo, gw).Update(context.Background(), 5, RoleUpdateInput{Name: strPtr("CURATOR")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestUpdateActiveOnlySkipsRemotePush(t *testing.T) {
	var persisted *entity.Role
	repo := &mockRoleRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.Role, error) {
			return &entity.Role{ID: 5, RemoteID: "rol_5", Name: "EDITOR", Active: true}, nil
		},
		UpdateFn: func(ctx context.Context, r *entity.Role) error { persisted = r; return nil },
	}
	gw := &mockGateway{
		UpdateRoleFn: func(ctx context.Context, remoteID, name, description string) error {
			t.Fatal("active flag is ledger-local, no remote push expected")
			return nil
		},
	}

	role, err := newRoleService(repo, gw).Update(context.Background(), 5, RoleUpdateInput{Active: boolPtr(false)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if role.Active {
		t.Error("active flag unchanged")
	}
	if persisted == nil {
		t.Fatal("ledger row not persisted")
	}
}

func TestEnsureDefaultsReconcilesAllRoles(t *testing.T) {
	seen := map[string]bool{}
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return &entity.Role{ID: 1, RemoteID: "rol_x", Name: name, Active: true}, nil
		},
	}
	gw := &mockGateway{
		GetRoleByNameFn: func(ctx context.Context, name string) (*idp.RemoteRole, error) {
			seen[name] = true
			return &idp.RemoteRole{ID: "rol_x", Name: name}, nil
		},
	}

	if err := newRoleService(repo, gw).EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	for _, name := range []string{"USER", "ADMIN", "OWNER"} {
		if !seen[name] {
			t.Errorf("default role %s not reconciled", name)
		}
	}
}

func TestGetByNameOrFailHidesInactiveRole(t *testing.T) {
	repo := &mockRoleRepo{
		GetByNameFn: func(ctx context.Context, name string) (*entity.Role, error) {
			return &entity.Role{ID: 2, Name: "LEGACY", Active: false}, nil
		},
	}
	svc := newRoleService(repo, &mockGateway{})

	if _, err := svc.GetByNameOrFail(context.Background(), "LEGACY", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive role, got %v", err)
	}
	if _, err := svc.GetByNameOrFail(context.Background(), "LEGACY", false); err != nil {
		t.Fatalf("unverified lookup failed: %v", err)
	}
}
