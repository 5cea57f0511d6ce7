package role

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/core/assignment"
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

// CreateRole handles POST /roles
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateRole(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

// UpdateRole handles PATCH /roles/{id}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.UpdateRole(r.Context(), roleID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// DeleteRole handles DELETE /roles/{id}
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Service.DeleteRole(r.Context(), roleID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// GetRole handles GET /roles/{id}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	hydrated, err := h.Service.GetRole(r.Context(), roleID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, hydrated)
}

// ListRoles handles GET /roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
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

	spec := specFromRequest(r)
	roles, err := h.Service.ListRoles(r.Context(), accountID, spec)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, roles)
}

// AssignPermissions handles POST /roles/{id}/permissions
func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto PermissionIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.AssignPermissionsToRole(r.Context(), roleID, dto.PermissionIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// RemovePermissions handles DELETE /roles/{id}/permissions
func (h *Handler) RemovePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto PermissionIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.RemovePermissionsFromRole(r.Context(), roleID, dto.PermissionIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// AssignToUser handles POST /users/{id}/roles
func (h *Handler) AssignToUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := h.callerAccount(w, r)
	if !ok {
		return
	}
	var dto RoleIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.AssignRolesToUser(r.Context(), accountID, userID, dto.RoleIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// RemoveFromUser handles DELETE /users/{id}/roles
func (h *Handler) RemoveFromUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := h.callerAccount(w, r)
	if !ok {
		return
	}
	var dto RoleIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.RemoveRolesFromUser(r.Context(), accountID, userID, dto.RoleIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
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

func (h *Handler) writeResult(w http.ResponseWriter, res assignment.Result) {
	h.WriteJSON(w, transport.StatusForResult(res), res)
}

func specFromRequest(r *http.Request) query.Spec {
	q := r.URL.Query()
	spec := query.Spec{}
	if name := q.Get("name"); name != "" {
		spec.Filters = append(spec.Filters, query.Filter{Field: "name", Op: query.OpContains, Value: name})
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
