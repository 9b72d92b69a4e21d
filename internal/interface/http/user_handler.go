package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/idplane/identity-ledger/internal/application"
	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/pkg/response"
	"github.com/idplane/identity-ledger/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"required"`
	RoleName string `json:"role_name"`
}

type externalIdentityRequest struct {
	RemoteID string `json:"remote_id" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
}

type sessionRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password" binding:"omitempty,pwd"`
}

func userJSON(u *entity.User) gin.H {
	out := gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"remote_id":  u.RemoteID,
		"active":     u.Active,
		"avatar_url": u.AvatarURL,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
	if u.Role != nil {
		out["role"] = u.Role.Name
	}
	if u.DeleteScheduledAt != nil {
		out["delete_scheduled_at"] = u.DeleteScheduledAt
	}
	return out
}

// Signup provisions a brand new identity on the provider and mirrors it
// into the ledger.
func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.RegisterFromRequest(c.Request.Context(), userapp.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		RoleName: req.RoleName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, userJSON(u), "user registered", nil)
}

// RegisterExternal mirrors an identity already provisioned on the
// provider into the ledger.
func (h *UserHandler) RegisterExternal(c *gin.Context) {
	var req externalIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.RegisterFromExternalIdentity(c.Request.Context(), req.RemoteID, req.Email, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, userJSON(u), "external identity registered", nil)
}

// Session returns the ledger mirror for a remote identity, creating it
// on first login.
func (h *UserHandler) Session(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.GetOrCreateByExternalIdentity(c.Request.Context(), c.Param("externalID"), req.Email, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "session user", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	u, err := h.Svc.FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "user", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var (
		users []*entity.User
		err   error
	)
	if role := c.Query("role"); role != "" {
		users, err = h.Svc.ListByRole(c.Request.Context(), role, limit, offset)
	} else {
		users, err = h.Svc.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	response.Success(c, http.StatusOK, out, "users", gin.H{"limit": limit, "offset": offset})
}

func (h *UserHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var u *entity.User
	if active {
		u, err = h.Svc.Activate(c.Request.Context(), id)
	} else {
		u, err = h.Svc.Deactivate(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "user deactivated"
	if active {
		msg = "user activated"
	}
	response.Success(c, http.StatusOK, userJSON(u), msg, nil)
}

// UpdateExternal applies name and/or password changes for the identity
// behind the external id.
func (h *UserHandler) UpdateExternal(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateByExternalID(c.Request.Context(), c.Param("externalID"), userapp.UpdateInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "user updated", nil)
}

// UploadAvatar stores the uploaded image and points the provider's
// profile picture at it.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.Param("externalID"), file, header.Filename, contentType)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar uploaded", nil)
}

// Picture returns the profile picture URL as the provider reports it.
func (h *UserHandler) Picture(c *gin.Context) {
	url, err := h.Svc.Picture(c.Request.Context(), c.Param("externalID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"picture": url}, "picture", nil)
}

// ScheduleDeletion stamps the user for deferred removal; the daily
// sweep finalizes it after the grace period.
func (h *UserHandler) ScheduleDeletion(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	u, err := h.Svc.ScheduleDeletion(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, userJSON(u), "deletion scheduled", gin.H{"due_at": u.DeleteScheduledAt})
}

// Search queries the Elasticsearch user directory.
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Warn("user search failed")
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}
