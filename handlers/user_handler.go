package handlers

import (
	"net/http"

	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/middleware"
	"github.com/upb/realm-guard/utils"
	"go.uber.org/zap"
)

// ProtectedResponse is returned by the sample protected route
type ProtectedResponse struct {
	Message string                `json:"message"`
	User    *keycloak.AuthContext `json:"user"`
}

// UserHandler serves identity endpoints behind the auth middleware
type UserHandler struct {
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(logger *zap.Logger) *UserHandler {
	return &UserHandler{logger: logger}
}

// HandleProtected handles GET /api/protected
func (h *UserHandler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAuthContext(r.Context())
	if ac == nil {
		// route mounted without the auth middleware
		h.logger.Error("protected route reached without auth context", zap.String("path", r.URL.Path))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, ProtectedResponse{
		Message: "Access granted",
		User:    ac,
	})
}

// HandleMe handles GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAuthContext(r.Context())
	if ac == nil {
		h.logger.Error("protected route reached without auth context", zap.String("path", r.URL.Path))
		_ = utils.WriteInternalServerError(w, "")
		return
	}
	_ = utils.WriteOK(w, ac)
}
