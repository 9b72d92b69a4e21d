package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idplane/identity-ledger/internal/container"
	handlers "github.com/idplane/identity-ledger/internal/interface/http"
	"github.com/idplane/identity-ledger/internal/interface/middleware"
)

// UserModule wires user provisioning and mutation routes.
// Signup and session routes get a tighter per-IP rate limit since they
// fan out to the identity provider.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	signupLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP())
	sessionLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIPAndPath())

	rg.POST("/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/users/external", signupLimiter, m.Handler.RegisterExternal)
	rg.POST("/users/external/:externalID/session", sessionLimiter, m.Handler.Session)

	rg.GET("/users", m.Handler.List)
	rg.GET("/users/search", m.Handler.Search)
	rg.GET("/users/:id", m.Handler.Get)
	rg.PATCH("/users/:id/activate", m.Handler.Activate)
	rg.PATCH("/users/:id/deactivate", m.Handler.Deactivate)
	rg.DELETE("/users/:id", m.Handler.ScheduleDeletion)

	rg.PUT("/users/external/:externalID", m.Handler.UpdateExternal)
	rg.POST("/users/external/:externalID/avatar", m.Handler.UploadAvatar)
	rg.GET("/users/external/:externalID/picture", m.Handler.Picture)
}
