package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idplane/identity-ledger/internal/application"
	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
	"github.com/idplane/identity-ledger/pkg/response"
)

// writeError maps application errors to HTTP statuses and writes the
// envelope. Unknown errors become a plain 500 without leaking details.
func writeError(c *gin.Context, err error) {
	var regErr *application.RegistrationError
	var permErr *idp.PermanentError
	var transErr *idp.TransientError

	switch {
	case errors.Is(err, application.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "resource not found", nil)
	case errors.Is(err, application.ErrEmailRegistered):
		response.Error[any](c, http.StatusConflict, "email already registered", nil)
	case errors.Is(err, application.ErrRoleNameTaken):
		response.Error[any](c, http.StatusConflict, "role name already taken", nil)
	case errors.Is(err, application.ErrProtectedRole):
		response.Error[any](c, http.StatusForbidden, "protected role cannot be renamed", nil)
	case errors.As(err, &regErr):
		response.Error[any](c, http.StatusBadGateway, "registration failed: "+regErr.Stage, nil)
	case errors.As(err, &transErr):
		response.Error[any](c, http.StatusBadGateway, "identity provider unavailable", nil)
	case errors.As(err, &permErr):
		if permErr.Status == http.StatusNotFound {
			response.Error[any](c, http.StatusNotFound, "resource not found", nil)
			return
		}
		response.Error[any](c, http.StatusBadGateway, "identity provider rejected the request", nil)
	default:
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
