package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	roleapp "github.com/idplane/identity-ledger/internal/application"
	"github.com/idplane/identity-ledger/internal/domain/entity"
	"github.com/idplane/identity-ledger/pkg/response"
	"github.com/idplane/identity-ledger/pkg/validation"
)

type RoleHandler struct {
	Svc    *roleapp.RoleService
	Logger *logrus.Logger
}

func NewRoleHandler(svc *roleapp.RoleService, logger *logrus.Logger) *RoleHandler {
	return &RoleHandler{Svc: svc, Logger: logger}
}

type ensureRoleRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=500"`
}

type updateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Active      *bool   `json:"active"`
}

func roleJSON(r *entity.Role) gin.H {
	return gin.H{
		"id":          r.ID,
		"remote_id":   r.RemoteID,
		"name":        r.Name,
		"description": r.Description,
		"active":      r.Active,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	}
}

// Ensure resolves a role to a consistent state in both stores. The
// outcome (created, repaired or already-consistent) is reported in the
// response meta so divergence repair stays observable.
func (h *RoleHandler) Ensure(c *gin.Context) {
	var req ensureRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	role, outcome, err := h.Svc.EnsureRole(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if outcome == roleapp.RoleCreated {
		status = http.StatusCreated
	}
	response.Success(c, status, roleJSON(role), "role ensured", gin.H{"outcome": string(outcome)})
}

func (h *RoleHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	role, err := h.Svc.FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, roleJSON(role), "role", nil)
}

func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleJSON(r))
	}
	response.Success(c, http.StatusOK, out, "roles", nil)
}

// Update applies a partial role update. Renaming a protected default
// role is rejected with 403.
func (h *RoleHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	role, err := h.Svc.Update(c.Request.Context(), id, roleapp.RoleUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, roleJSON(role), "role updated", nil)
}
