package group

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

// CreateGroup handles POST /groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var dto CreateGroupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateGroup(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

// UpdateGroup handles PATCH /groups/{id}
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateGroupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.UpdateGroup(r.Context(), groupID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// DeleteGroup handles DELETE /groups/{id}
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Service.DeleteGroup(r.Context(), groupID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// GetGroup handles GET /groups/{id}
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.Service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

// ListGroups handles GET /groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	spec := specFromRequest(r)
	groups, err := h.Service.ListGroups(r.Context(), accountID, spec)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, groups)
}

// AddUsers handles POST /groups/{id}/users
func (h *Handler) AddUsers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto UserIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.AddUsersToGroup(r.Context(), groupID, dto.UserIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// RemoveUsers handles DELETE /groups/{id}/users
func (h *Handler) RemoveUsers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto UserIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.RemoveUsersFromGroup(r.Context(), groupID, dto.UserIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// AssignRoles handles POST /groups/{id}/roles
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto RoleIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.AssignRolesToGroup(r.Context(), groupID, dto.RoleIDs)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.writeResult(w, res)
}

// RemoveRoles handles DELETE /groups/{id}/roles
func (h *Handler) RemoveRoles(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto RoleIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.RemoveRolesFromGroup(r.Context(), groupID, dto.RoleIDs)
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
