package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/aegis-identity/aegis/internal/transport"
	"github.com/aegis-identity/aegis/pkg/logger"
	"github.com/go-chi/chi"
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

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateUser(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	hydrate := r.URL.Query().Get("hydrate") == "true"
	detail, err := h.Service.GetUser(r.Context(), accountID, userID, hydrate)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

// Me handles GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.CallerFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accountID, ok := caller.Account()
	if !ok {
		h.WriteError(w, http.StatusForbidden, "no account context")
		return
	}

	hydrate := r.URL.Query().Get("hydrate") == "true"
	detail, err := h.Service.GetUser(r.Context(), accountID, caller.UserID, hydrate)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	spec := specFromRequest(r)
	users, err := h.Service.ListUsers(r.Context(), accountID, spec)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) callerAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	caller, ok := internal.CallerFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	accountID, ok := caller.Account()
	if !ok {
		h.WriteError(w, http.StatusForbidden, "no account context")
		return 0, false
	}
	return accountID, true
}

func specFromRequest(r *http.Request) query.Spec {
	q := r.URL.Query()
	spec := query.Spec{}
	if username := q.Get("username"); username != "" {
		spec.Filters = append(spec.Filters, query.Filter{Field: "username", Op: query.OpContains, Value: username})
	}
	if email := q.Get("email"); email != "" {
		spec.Filters = append(spec.Filters, query.Filter{Field: "email", Op: query.OpContains, Value: email})
	}
	if sort := q.Get("sort"); sort != "" {
		desc := false
		if sort[0] == '-' {
			desc = true
			sort = sort[1:]
		}
		spec.Sorts = append(spec.Sorts, query.Sort{Field: sort, Descending: desc})
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		spec.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		spec.PageSize = size
	}
	return spec
}
