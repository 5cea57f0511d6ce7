package auth

import (
	"encoding/json"
	"net/http"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/transport"
	"github.com/aegis-identity/aegis/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     svc,
	}
}

// SignIn handles POST /auth/token
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var dto SignInDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.SignIn(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// Validate handles POST /auth/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var dto ValidateTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if dto.Token == "" {
		dto.Token = h.ExtractTokenFromHeader(r)
	}
	if dto.Token == "" {
		h.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	validation, err := h.Service.ValidateToken(r.Context(), dto.Token)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, validation)
}

// Logout handles POST /auth/logout. It revokes the bearer token the
// request was authenticated with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.CallerFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tokenString := h.ExtractTokenFromHeader(r)
	if tokenString == "" {
		h.WriteError(w, http.StatusBadRequest, "missing bearer token")
		return
	}
	validation, err := h.Service.ValidateToken(r.Context(), tokenString)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	revoked, err := h.Service.RevokeToken(r.Context(), caller.UserID, validation.TokenID, validation.DeviceID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

// LogoutAll handles POST /auth/logout-all. It revokes every active token
// of the calling user across all devices and accounts.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.CallerFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.RevokeAllTokensForUser(r.Context(), caller.UserID); err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}
