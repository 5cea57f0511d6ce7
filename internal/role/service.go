package role

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/core/assignment"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/core/events"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/aegis-identity/aegis/internal/ownership"
)

// Service implements the role side of the assignment engine: role CRUD
// with system-defined protection, permission attachment with
// partial-success reporting, and direct user-role assignment gated by the
// ownership engine.
type Service struct {
	repo      RepositoryAPI
	ownership ownership.ServiceAPI
	bus       *events.EventBus
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, ownershipSvc ownership.ServiceAPI, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		ownership: ownershipSvc,
		bus:       bus,
		logger:    logger,
	}
}

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*roledm.Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.AccountID, dto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("role %q already exists in this account", dto.Name),
			internal.ErrCodeDuplicateName)
	}

	r := &roledm.Role{
		AccountID:   dto.AccountID,
		Name:        dto.Name,
		Description: dto.Description,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("failed to create role", "error", err, "account_id", dto.AccountID)
		return nil, err
	}

	s.logger.Info("role created", "role_id", r.ID, "account_id", r.AccountID, "name", r.Name)
	return r, nil
}

func (s *Service) UpdateRole(ctx context.Context, roleID int64, dto UpdateRoleDTO) (assignment.Result, error) {
	if err := dto.Validate(); err != nil {
		return assignment.Result{}, err
	}

	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if r == nil {
		return assignment.NotFound(assignment.CodeRoleNotFound, "role", roleID, nil), nil
	}
	if r.IsSystemDefined {
		return assignment.SystemViolation(assignment.CodeSystemDefinedRole, nil,
			"system-defined roles cannot be renamed or described"), nil
	}

	if dto.Name != nil {
		r.Name = *dto.Name
	}
	if dto.Description != nil {
		r.Description = *dto.Description
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return assignment.Result{}, err
	}
	return assignment.Success(1, "role updated"), nil
}

// DeleteRole refuses outright for system-defined roles. The ownership gate
// is implied: the Owner role is system-defined, so no deletable role can
// carry ownership.
func (s *Service) DeleteRole(ctx context.Context, roleID int64) (assignment.Result, error) {
	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if r == nil {
		return assignment.NotFound(assignment.CodeRoleNotFound, "role", roleID, nil), nil
	}
	if r.IsSystemDefined {
		return assignment.SystemViolation(assignment.CodeSystemDefinedRole, []int64{roleID},
			"system-defined roles cannot be deleted"), nil
	}

	if err := s.repo.Delete(ctx, roleID); err != nil {
		return assignment.Result{}, err
	}

	s.logger.Info("role deleted", "role_id", roleID, "account_id", r.AccountID)
	return assignment.Success(1, "role deleted"), nil
}

func (s *Service) GetRole(ctx context.Context, roleID int64) (*RoleWithPermissions, error) {
	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, internal.NewNotFoundError("role not found", internal.ErrCodeRoleNotFound)
	}
	perms, err := s.repo.AttachedPermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return &RoleWithPermissions{Role: *r, Permissions: perms}, nil
}

func (s *Service) ListRoles(ctx context.Context, accountID int64, spec query.Spec) ([]roledm.Role, error) {
	return s.repo.List(ctx, accountID, spec)
}

// AssignPermissionsToRole attaches the requested permissions to the role.
// Ids that are not found, belong to another account, or are already
// attached land in the invalid bucket undifferentiated.
func (s *Service) AssignPermissionsToRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(permissionIDs)

	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if r == nil {
		return assignment.NotFound(assignment.CodeRoleNotFound, "role", roleID, requested), nil
	}

	candidates, err := s.repo.CandidatePermissionIDs(ctx, roleID, r.AccountID, requested)
	if err != nil {
		return assignment.Result{}, err
	}
	if len(candidates) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidPermissionIDs, requested), nil
	}

	if err := s.repo.AttachPermissions(ctx, roleID, candidates); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewRoleAssignmentChangedEvent(r.AccountID, roleID, "attach_permissions", candidates))

	invalid := assignment.Diff(requested, candidates)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(candidates), invalid, nil,
			fmt.Sprintf("%d permissions attached, %d ids rejected", len(candidates), len(invalid))), nil
	}
	return assignment.Success(len(candidates), "permissions attached"), nil
}

// RemovePermissionsFromRole detaches the requested permissions. On a
// system-defined role, system-defined permissions are blocked from
// removal; when every requested attachment is blocked the operation is
// refused wholesale.
func (s *Service) RemovePermissionsFromRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(permissionIDs)

	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if r == nil {
		return assignment.NotFound(assignment.CodeRoleNotFound, "role", roleID, requested), nil
	}

	attached, err := s.repo.AttachedPermissions(ctx, roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	attachedByID := make(map[int64]bool, len(attached))
	for i := range attached {
		attachedByID[attached[i].ID] = attached[i].IsSystemDefined
	}

	var toRemove []int64
	for _, id := range requested {
		if _, ok := attachedByID[id]; ok {
			toRemove = append(toRemove, id)
		}
	}
	if len(toRemove) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidPermissionIDs, requested), nil
	}

	var removable, blocked []int64
	if r.IsSystemDefined {
		for _, id := range toRemove {
			if attachedByID[id] {
				blocked = append(blocked, id)
			} else {
				removable = append(removable, id)
			}
		}
		if len(removable) == 0 {
			return assignment.SystemViolation(assignment.CodeSystemPermissionRemoval, blocked,
				"system-defined permissions cannot be removed from a system-defined role"), nil
		}
	} else {
		removable = toRemove
	}

	if err := s.repo.DetachPermissions(ctx, roleID, removable); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewRoleAssignmentChangedEvent(r.AccountID, roleID, "detach_permissions", removable))

	invalid := assignment.Diff(requested, append(append([]int64{}, removable...), blocked...))
	if len(blocked) > 0 || len(invalid) > 0 {
		return assignment.PartialSuccess(len(removable), invalid, blocked,
			fmt.Sprintf("%d permissions removed, %d blocked, %d ids rejected", len(removable), len(blocked), len(invalid))), nil
	}
	return assignment.Success(len(removable), "permissions removed"), nil
}

// AssignRolesToUser attaches account-scoped roles directly to a user.
func (s *Service) AssignRolesToUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(roleIDs)

	u, err := s.repo.GetUserInAccount(ctx, accountID, userID)
	if err != nil {
		return assignment.Result{}, err
	}
	if u == nil {
		return assignment.NotFound(assignment.CodeUserNotFound, "user", userID, requested), nil
	}

	candidates, err := s.repo.CandidateRoleIDsForUser(ctx, userID, accountID, requested)
	if err != nil {
		return assignment.Result{}, err
	}
	if len(candidates) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidRoleIDs, requested), nil
	}

	if err := s.repo.AttachRolesToUser(ctx, userID, candidates); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewRoleAssignmentChangedEvent(accountID, userID, "attach_roles_to_user", candidates))

	invalid := assignment.Diff(requested, candidates)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(candidates), invalid, nil,
			fmt.Sprintf("%d roles assigned, %d ids rejected", len(candidates), len(invalid))), nil
	}
	return assignment.Success(len(candidates), "roles assigned"), nil
}

// RemoveRolesFromUser detaches directly-assigned roles. Removing the
// user's direct Owner assignment is refused when it is the account's last
// ownership path.
func (s *Service) RemoveRolesFromUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(roleIDs)

	u, err := s.repo.GetUserInAccount(ctx, accountID, userID)
	if err != nil {
		return assignment.Result{}, err
	}
	if u == nil {
		return assignment.NotFound(assignment.CodeUserNotFound, "user", userID, requested), nil
	}

	assigned, err := s.repo.AssignedRoles(ctx, userID, accountID)
	if err != nil {
		return assignment.Result{}, err
	}
	assignedByID := make(map[int64]roledm.Role, len(assigned))
	for i := range assigned {
		assignedByID[assigned[i].ID] = assigned[i]
	}

	var toRemove []int64
	removesOwner := false
	for _, id := range requested {
		r, ok := assignedByID[id]
		if !ok {
			continue
		}
		toRemove = append(toRemove, id)
		if r.IsSystemDefined && r.Name == roledm.SystemRoleOwner {
			removesOwner = true
		}
	}
	if len(toRemove) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidRoleIDs, requested), nil
	}

	if removesOwner {
		status, err := s.ownership.IsSoleOwner(ctx, userID, accountID)
		if err != nil {
			return assignment.Result{}, err
		}
		if status.IsSoleOwner && status.HasSingleOwnershipSource {
			return assignment.SystemViolation(assignment.CodeLastOwner, toRemove,
				"removing this role would leave the account without an owner"), nil
		}
	}

	if err := s.repo.DetachRolesFromUser(ctx, userID, toRemove); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewRoleAssignmentChangedEvent(accountID, userID, "detach_roles_from_user", toRemove))

	invalid := assignment.Diff(requested, toRemove)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(toRemove), invalid, nil,
			fmt.Sprintf("%d roles removed, %d ids rejected", len(toRemove), len(invalid))), nil
	}
	return assignment.Success(len(toRemove), "roles removed"), nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("audit event publish failed", "event_type", event.EventType(), "error", err)
	}
}
