package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/idplane/identity-ledger/internal/interface/http"
)

// RoleModule wires role reconciliation and read routes.
type RoleModule struct {
	Handler *handlers.RoleHandler
}

func NewRoleModule(h *handlers.RoleHandler) *RoleModule {
	return &RoleModule{Handler: h}
}

func (m *RoleModule) Register(rg *gin.RouterGroup) {
	rg.POST("/roles", m.Handler.Ensure)
	rg.GET("/roles", m.Handler.List)
	rg.GET("/roles/:id", m.Handler.Get)
	rg.PUT("/roles/:id", m.Handler.Update)
}
