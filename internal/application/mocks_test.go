package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/internal/domain/repository"
	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
)

// Function-field mocks; a nil field panics, which surfaces calls a test
// did not expect.

type mockRoleRepo struct {
	CreateFn    func(ctx context.Context, r *entity.Role) error
	GetByIDFn   func(ctx context.Context, id int64) (*entity.Role, error)
	GetByNameFn func(ctx context.Context, name string) (*entity.Role, error)
	UpdateFn    func(ctx context.Context, r *entity.Role) error
	ListFn      func(ctx context.Context) ([]*entity.Role, error)
}

func (m *mockRoleRepo) Create(ctx context.Context, r *entity.Role) error { return m.CreateFn(ctx, r) }
func (m *mockRoleRepo) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	return m.GetByIDFn(ctx, id)
}
func (m *mockRoleRepo) GetByName(ctx context.Context, name string) (*entity.Role, error) {
	return m.GetByNameFn(ctx, name)
}
func (m *mockRoleRepo) Update(ctx context.Context, r *entity.Role) error { return m.UpdateFn(ctx, r) }
func (m *mockRoleRepo) List(ctx context.Context) ([]*entity.Role, error) { return m.ListFn(ctx) }

type mockUserRepo struct {
	CreateFn             func(ctx context.Context, u *entity.User) error
	GetByIDFn            func(ctx context.Context, id int64) (*entity.User, error)
	GetByRemoteIDFn      func(ctx context.Context, remoteID string) (*entity.User, error)
	ExistsByEmailFn      func(ctx context.Context, email string) (bool, error)
	UpdateFn             func(ctx context.Context, u *entity.User) error
	DeleteFn             func(ctx context.Context, id int64) error
	ListFn               func(ctx context.Context, limit, offset int) ([]*entity.User, error)
	ListByRoleFn         func(ctx context.Context, roleID int64, limit, offset int) ([]*entity.User, error)
	ListDueForDeletionFn func(ctx context.Context, now time.Time) ([]*entity.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error { return m.CreateFn(ctx, u) }
func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return m.GetByIDFn(ctx, id)
}
func (m *mockUserRepo) GetByRemoteID(ctx context.Context, remoteID string) (*entity.User, error) {
	return m.GetByRemoteIDFn(ctx, remoteID)
}
func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.ExistsByEmailFn(ctx, email)
}
func (m *mockUserRepo) Update(ctx context.Context, u *entity.User) error { return m.UpdateFn(ctx, u) }
func (m *mockUserRepo) Delete(ctx context.Context, id int64) error       { return m.DeleteFn(ctx, id) }
func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	return m.ListFn(ctx, limit, offset)
}
func (m *mockUserRepo) ListByRole(ctx context.Context, roleID int64, limit, offset int) ([]*entity.User, error) {
	return m.ListByRoleFn(ctx, roleID, limit, offset)
}
func (m *mockUserRepo) ListDueForDeletion(ctx context.Context, now time.Time) ([]*entity.User, error) {
	return m.ListDueForDeletionFn(ctx, now)
}

type mockGateway struct {
	CreateUserFn    func(ctx context.Context, email, password, name string) (*idp.RemoteUser, error)
	GetUserFn       func(ctx context.Context, remoteID string) (*idp.RemoteUser, error)
	DeleteUserFn    func(ctx context.Context, remoteID string) error
	SetNameFn       func(ctx context.Context, remoteID, name string) error
	SetPasswordFn   func(ctx context.Context, remoteID, password string) error
	SetPictureFn    func(ctx context.Context, remoteID, pictureURL string) error
	SetBlockedFn    func(ctx context.Context, remoteID string, blocked bool) error
	AssignRoleFn    func(ctx context.Context, remoteUserID, remoteRoleID string) error
	ListUserRolesFn func(ctx context.Context, remoteUserID string) ([]idp.RemoteRole, error)

	CreateRoleFn    func(ctx context.Context, name, description string) (*idp.RemoteRole, error)
	UpdateRoleFn    func(ctx context.Context, remoteID, name, description string) error
	GetRoleByNameFn func(ctx context.Context, name string) (*idp.RemoteRole, error)
}

func (m *mockGateway) CreateUser(ctx context.Context, email, password, name string) (*idp.RemoteUser, error) {
	return m.CreateUserFn(ctx, email, password, name)
}
func (m *mockGateway) GetUser(ctx context.Context, remoteID string) (*idp.RemoteUser, error) {
	return m.GetUserFn(ctx, remoteID)
}
func (m *mockGateway) DeleteUser(ctx context.Context, remoteID string) error {
	return m.DeleteUserFn(ctx, remoteID)
}
func (m *mockGateway) SetName(ctx context.Context, remoteID, name string) error {
	return m.SetNameFn(ctx, remoteID, name)
}
func (m *mockGateway) SetPassword(ctx context.Context, remoteID, password string) error {
	return m.SetPasswordFn(ctx, remoteID, password)
}
func (m *mockGateway) SetPicture(ctx context.Context, remoteID, pictureURL string) error {
	return m.SetPictureFn(ctx, remoteID, pictureURL)
}
func (m *mockGateway) SetBlocked(ctx context.Context, remoteID string, blocked bool) error {
	return m.SetBlockedFn(ctx, remoteID, blocked)
}
func (m *mockGateway) AssignRole(ctx context.Context, remoteUserID, remoteRoleID string) error {
	return m.AssignRoleFn(ctx, remoteUserID, remoteRoleID)
}
func (m *mockGateway) ListUserRoles(ctx context.Context, remoteUserID string) ([]idp.RemoteRole, error) {
	return m.ListUserRolesFn(ctx, remoteUserID)
}
func (m *mockGateway) CreateRole(ctx context.Context, name, description string) (*idp.RemoteRole, error) {
	return m.CreateRoleFn(ctx, name, description)
}
func (m *mockGateway) UpdateRole(ctx context.Context, remoteID, name, description string) error {
	return m.UpdateRoleFn(ctx, remoteID, name, description)
}
func (m *mockGateway) GetRoleByName(ctx context.Context, name string) (*idp.RemoteRole, error) {
	return m.GetRoleByNameFn(ctx, name)
}

var (
	_ repository.RoleRepository = (*mockRoleRepo)(nil)
	_ repository.UserRepository = (*mockUserRepo)(nil)
	_ IdentityGateway           = (*mockGateway)(nil)
	_ RoleGateway               = (*mockGateway)(nil)
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
