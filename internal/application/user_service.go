package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/internal/domain/repository"
	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
	"github.com/idplane/identity-ledger/pkg/helpers"
	"github.com/idplane/identity-ledger/pkg/mailer"
)

// UserService orchestrates identity provisioning and mutation across
// the ledger and the identity provider. The remote side always leads:
// a ledger row is never written unless the matching remote state
// already exists, and a failed step after a remote create triggers a
// best-effort compensating delete.
type UserService struct {
	Repo    repository.UserRepository
	Roles   *RoleService
	Gateway IdentityGateway
	Logger  *logrus.Logger

	GCS       *storage.Client
	GCSBucket string

	ES           *elasticsearch.Client
	ESUsersIndex string

	Rabbit         *helpers.RabbitPublisher
	AlertRecipient string

	DefaultRoleName string
	GracePeriod     time.Duration
}

// SignupInput is a validated self-service signup request.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	RoleName string
}

// UpdateInput carries the mutable profile fields; blank fields are
// ignored. The password only ever travels to the provider.
type UpdateInput struct {
	Name     string
	Password string
}

// RegisterFromRequest provisions a brand new identity: remote create,
// remote role assignment, then the ledger insert. If anything after
// the remote create fails, the remote identity is deleted again so the
// provider is not left with an unusable orphan.
func (s *UserService) RegisterFromRequest(ctx context.Context, in SignupInput) (*entity.User, error) {
	role, err := s.resolveSignupRole(ctx, in.RoleName)
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailRegistered
	}

	remote, err := s.Gateway.CreateUser(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return nil, &RegistrationError{Stage: "create remote identity", Err: err}
	}

	user := &entity.User{
		Name:     remote.Name,
		Email:    remote.Email,
		RemoteID: remote.ID,
		Active:   true,
		RoleID:   role.ID,
		Role:     role,
	}

	if err := s.completeProvisioning(ctx, user, role, true); err != nil {
		return nil, err
	}

	s.enqueueWelcomeEmail(ctx, user)
	return user, nil
}

// RegisterFromExternalIdentity mirrors an identity that already exists
// on the provider (e.g. created through an external sign-in flow) into
// the ledger for the first time. The compensating delete removes a
// remote identity this call did not create; that is intentional, since
// an identity with neither a ledger mirror nor a role is not a usable
// account here.
func (s *UserService) RegisterFromExternalIdentity(ctx context.Context, remoteID, email, name string) (*entity.User, error) {
	role, err := s.Roles.GetByNameOrFail(ctx, s.DefaultRoleName, true)
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailRegistered
	}

	if name == "" {
		name = email
	}
	user := &entity.User{
		Name:     name,
		Email:    email,
		RemoteID: remoteID,
		Active:   true,
		RoleID:   role.ID,
		Role:     role,
	}

	if err := s.completeProvisioning(ctx, user, role, true); err != nil {
		return nil, err
	}
	return user, nil
}

// GetOrCreateByExternalIdentity returns the ledger mirror for a remote
// identity, creating it on first login. The role comes from whatever is
// already assigned on the provider side, defaulting to the configured
// base role. No compensation here: this path never creates a remote
// identity.
func (s *UserService) GetOrCreateByExternalIdentity(ctx context.Context, remoteID, email, name string) (*entity.User, error) {
	u, err := s.Repo.GetByRemoteID(ctx, remoteID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	exists, err := s.Repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		// The email was registered through a different identity channel.
		return nil, ErrEmailRegistered
	}

	roleName := s.DefaultRoleName
	if remoteRoles, err := s.Gateway.ListUserRoles(ctx, remoteID); err != nil {
		s.Logger.WithError(err).WithField("remote_id", remoteID).Warn("could not read remote roles, using default role")
	} else if len(remoteRoles) > 0 {
		roleName = remoteRoles[0].Name
	}

	role, err := s.Roles.GetByNameOrFail(ctx, roleName, true)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = email
	}
	user := &entity.User{
		Name:     name,
		Email:    email,
		RemoteID: remoteID,
		Active:   true,
		RoleID:   role.ID,
		Role:     role,
	}

	if err := s.completeProvisioning(ctx, user, role, false); err != nil {
		return nil, err
	}
	return user, nil
}

// completeProvisioning runs the shared tail of every provisioning flow:
// assign the role remotely, then insert the ledger row. compensate says
// whether a failure should delete the remote identity again.
func (s *UserService) completeProvisioning(ctx context.Context, user *entity.User, role *entity.Role, compensate bool) error {
	s.Logger.WithFields(logrus.Fields{"email": user.Email, "role": role.Name}).Info("provisioning user")

	if err := s.Gateway.AssignRole(ctx, user.RemoteID, role.RemoteID); err != nil {
		if compensate {
			s.compensateRemote(ctx, user)
		}
		return &RegistrationError{Stage: "assign role", Err: err}
	}

	if err := s.Repo.Create(ctx, user); err != nil {
		if compensate {
			s.compensateRemote(ctx, user)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrEmailRegistered
		}
		return &RegistrationError{Stage: "persist user", Err: err}
	}

	s.indexUser(ctx, user)
	s.Logger.WithField("email", user.Email).Info("user provisioned")
	return nil
}

// compensateRemote undoes a remote identity create after a later step
// failed. Attempted once; its own failure is logged and never masks
// the original error.
func (s *UserService) compensateRemote(ctx context.Context, user *entity.User) {
	s.Logger.WithFields(logrus.Fields{"email": user.Email, "remote_id": user.RemoteID}).Error("provisioning failed, deleting remote identity")
	if err := s.Gateway.DeleteUser(ctx, user.RemoteID); err != nil {
		s.Logger.WithError(err).WithField("remote_id", user.RemoteID).Error("compensating remote delete failed")
	}
}

func (s *UserService) resolveSignupRole(ctx context.Context, requested string) (*entity.Role, error) {
	name := requested
	if name == "" {
		name = s.DefaultRoleName
	}
	role, err := s.Roles.GetByNameOrFail(ctx, name, true)
	if errors.Is(err, ErrNotFound) && !strings.EqualFold(name, s.DefaultRoleName) {
		s.Logger.WithFields(logrus.Fields{"requested": requested, "fallback": s.DefaultRoleName}).Warn("requested role not found, assigning default role")
		return s.Roles.GetByNameOrFail(ctx, s.DefaultRoleName, true)
	}
	return role, err
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	return s.getByIDOrFail(ctx, id, false)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.List(ctx, limit, offset)
}

func (s *UserService) ListByRole(ctx context.Context, roleName string, limit, offset int) ([]*entity.User, error) {
	role, err := s.Roles.GetByNameOrFail(ctx, roleName, true)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.ListByRole(ctx, role.ID, limit, offset)
}

// Activate re-enables a deactivated user. Already-active users are
// returned as-is without touching the provider.
func (s *UserService) Activate(ctx context.Context, id int64) (*entity.User, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate blocks the user. Already-inactive users are returned
// as-is without touching the provider.
func (s *UserService) Deactivate(ctx context.Context, id int64) (*entity.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) setActive(ctx context.Context, id int64, active bool) (*entity.User, error) {
	user, err := s.getByIDOrFail(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if user.Active == active {
		s.Logger.WithFields(logrus.Fields{"id": id, "active": active}).Info("user already in requested state")
		return user, nil
	}

	// Remote leads: the ledger flag only flips once the provider
	// confirmed the block/unblock.
	if err := s.Gateway.SetBlocked(ctx, user.RemoteID, !active); err != nil {
		return nil, err
	}
	user.Active = active
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.indexUser(ctx, user)
	return user, nil
}

// UpdateByExternalID applies profile changes for the identity behind
// remoteID. Name goes remote-then-local; the password goes to the
// provider only.
func (s *UserService) UpdateByExternalID(ctx context.Context, remoteID string, in UpdateInput) (*entity.User, error) {
	user, err := s.getByRemoteIDOrFail(ctx, remoteID, true)
	if err != nil {
		return nil, err
	}

	changed := false
	if in.Name != "" && in.Name != user.Name {
		if err := s.Gateway.SetName(ctx, user.RemoteID, in.Name); err != nil {
			return nil, err
		}
		user.Name = in.Name
		changed = true
	}

	if in.Password != "" {
		if err := s.Gateway.SetPassword(ctx, user.RemoteID, in.Password); err != nil {
			return nil, err
		}
	}

	if changed {
		if err := s.Repo.Update(ctx, user); err != nil {
			return nil, err
		}
		s.indexUser(ctx, user)
	}
	return user, nil
}

// UploadAvatar stores the image in GCS and points the provider's
// picture at the public URL, then mirrors it in the ledger.
func (s *UserService) UploadAvatar(ctx context.Context, remoteID string, r io.Reader, filename, contentType string) (string, error) {
	user, err := s.getByRemoteIDOrFail(ctx, remoteID, true)
	if err != nil {
		return "", err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", user.RemoteID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}

	if err := s.Gateway.SetPicture(ctx, user.RemoteID, url); err != nil {
		return "", err
	}
	user.AvatarURL = url
	if err := s.Repo.Update(ctx, user); err != nil {
		return "", err
	}
	s.indexUser(ctx, user)
	return url, nil
}

// Picture returns the profile picture URL as the provider reports it.
func (s *UserService) Picture(ctx context.Context, remoteID string) (string, error) {
	user, err := s.getByRemoteIDOrFail(ctx, remoteID, false)
	if err != nil {
		return "", err
	}
	remote, err := s.Gateway.GetUser(ctx, user.RemoteID)
	if err != nil {
		return "", err
	}
	return remote.Picture, nil
}

// ScheduleDeletion stamps the user for deferred removal after the
// configured grace period; the sweep finalizes it.
func (s *UserService) ScheduleDeletion(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.getByIDOrFail(ctx, id, false)
	if err != nil {
		return nil, err
	}
	due := time.Now().Add(s.GracePeriod)
	user.DeleteScheduledAt = &due
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"id": id, "due": due}).Info("user deletion scheduled")
	return user, nil
}

// ExecuteScheduledDeletions finalizes every due record: delete on the
// provider, then in the ledger. One failing record is logged and
// skipped so it cannot block the rest of the batch; it stays scheduled
// and is retried on the next run.
func (s *UserService) ExecuteScheduledDeletions(ctx context.Context) (deleted, failed int, err error) {
	due, err := s.Repo.ListDueForDeletion(ctx, time.Now())
	if err != nil {
		return 0, 0, err
	}

	for _, user := range due {
		if err := s.deleteEverywhere(ctx, user); err != nil {
			failed++
			s.Logger.WithError(err).WithFields(logrus.Fields{"id": user.ID, "email": user.Email}).Error("scheduled deletion failed")
			continue
		}
		deleted++
	}

	if failed > 0 {
		s.enqueueSweepAlert(ctx, deleted, failed)
	}
	return deleted, failed, nil
}

func (s *UserService) deleteEverywhere(ctx context.Context, user *entity.User) error {
	if err := s.Gateway.DeleteUser(ctx, user.RemoteID); err != nil && !idp.IsNotFound(err) {
		return err
	}
	if err := s.Repo.Delete(ctx, user.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	s.removeFromIndex(ctx, user)
	s.Logger.WithFields(logrus.Fields{"id": user.ID, "email": user.Email}).Info("user deleted in both stores")
	return nil
}

func (s *UserService) getByIDOrFail(ctx context.Context, id int64, verifyActive bool) (*entity.User, error) {
	user, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verifyActive && !user.Active {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserService) getByRemoteIDOrFail(ctx context.Context, remoteID string, verifyActive bool) (*entity.User, error) {
	user, err := s.Repo.GetByRemoteID(ctx, remoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verifyActive && !user.Active {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserService) enqueueWelcomeEmail(ctx context.Context, user *entity.User) {
	if s.Rabbit == nil {
		return
	}
	job := mailer.EmailJob{
		To:       user.Email,
		Template: "welcome",
		Data:     map[string]any{"Name": user.Name, "Role": user.Role.Name},
	}
	if err := s.Rabbit.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("email", user.Email).Warn("welcome email enqueue failed")
	}
}

func (s *UserService) enqueueSweepAlert(ctx context.Context, deleted, failed int) {
	if s.Rabbit == nil || s.AlertRecipient == "" {
		return
	}
	job := mailer.EmailJob{
		To:       s.AlertRecipient,
		Template: "sweep_alert",
		Data: map[string]any{
			"Time":    time.Now().UTC().Format(time.RFC3339),
			"Deleted": deleted,
			"Failed":  failed,
		},
	}
	if err := s.Rabbit.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).Warn("sweep alert enqueue failed")
	}
}

// indexUser mirrors the ledger record into the Elasticsearch user
// directory; indexing is best effort and never fails the operation.
func (s *UserService) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"role":       u.Role.Name,
		"active":     u.Active,
		"remote_id":  u.RemoteID,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: strconv.FormatInt(u.ID, 10), Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("id", u.ID).Warn("es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithFields(logrus.Fields{"status": res.Status(), "id": u.ID}).Warn("es index response error")
	}
}

func (s *UserService) removeFromIndex(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: strconv.FormatInt(u.ID, 10)}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("id", u.ID).Warn("es delete failed")
		return
	}
	_ = res.Body.Close()
}

// SearchUsers performs a simple multi_match search on email and name.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
