package group

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/core/assignment"
	groupdm "github.com/aegis-identity/aegis/internal/core/datamodel/group"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/core/events"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/aegis-identity/aegis/internal/ownership"
)

// Service implements the group side of the assignment engine: membership
// and role attachment with partial-success reporting, and the ownership
// gate on every mutation that could strip an account's last owner.
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

func (s *Service) CreateGroup(ctx context.Context, dto CreateGroupDTO) (*groupdm.Group, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.AccountID, dto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("group %q already exists in this account", dto.Name),
			internal.ErrCodeDuplicateName)
	}

	g := &groupdm.Group{
		AccountID:   dto.AccountID,
		Name:        dto.Name,
		Description: dto.Description,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		s.logger.Error("failed to create group", "error", err, "account_id", dto.AccountID)
		return nil, err
	}

	s.logger.Info("group created", "group_id", g.ID, "account_id", g.AccountID, "name", g.Name)
	return g, nil
}

func (s *Service) UpdateGroup(ctx context.Context, groupID int64, dto UpdateGroupDTO) (assignment.Result, error) {
	if err := dto.Validate(); err != nil {
		return assignment.Result{}, err
	}

	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if g == nil {
		return assignment.NotFound(assignment.CodeGroupNotFound, "group", groupID, nil), nil
	}

	if dto.Name != nil {
		g.Name = *dto.Name
	}
	if dto.Description != nil {
		g.Description = *dto.Description
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return assignment.Result{}, err
	}
	return assignment.Success(1, "group updated"), nil
}

// DeleteGroup refuses when the group is the last remaining ownership path
// for its members: the group carries the Owner role, has members, and no
// member reaches ownership outside the group.
func (s *Service) DeleteGroup(ctx context.Context, groupID int64) (assignment.Result, error) {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if g == nil {
		return assignment.NotFound(assignment.CodeGroupNotFound, "group", groupID, nil), nil
	}

	carriesOwner, err := s.carriesOwnerRole(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if carriesOwner {
		members, err := s.repo.Members(ctx, groupID)
		if err != nil {
			return assignment.Result{}, err
		}
		if len(members) > 0 {
			memberIDs := make([]int64, 0, len(members))
			for i := range members {
				memberIDs = append(memberIDs, members[i].ID)
			}
			retained, err := s.ownership.AnyUserHasOwnershipOutsideGroup(ctx, memberIDs, g.AccountID, groupID)
			if err != nil {
				return assignment.Result{}, err
			}
			if !retained {
				return assignment.SystemViolation(assignment.CodeLastOwner, nil,
					"deleting this group would leave the account without an owner"), nil
			}
		}
	}

	if err := s.repo.Delete(ctx, groupID); err != nil {
		return assignment.Result{}, err
	}

	s.logger.Info("group deleted", "group_id", groupID, "account_id", g.AccountID)
	return assignment.Success(1, "group deleted"), nil
}

func (s *Service) GetGroup(ctx context.Context, groupID int64) (*GroupDetail, error) {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, internal.NewNotFoundError("group not found", internal.ErrCodeGroupNotFound)
	}

	users, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.AssignedRoles(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{Group: *g, Users: users, Roles: roles}, nil
}

func (s *Service) ListGroups(ctx context.Context, accountID int64, spec query.Spec) ([]groupdm.Group, error) {
	return s.repo.List(ctx, accountID, spec)
}

// AddUsersToGroup attaches account members to the group. Ids that are not
// found, belong to another account, or are already members land in the
// invalid bucket undifferentiated.
func (s *Service) AddUsersToGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(userIDs)

	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if g == nil {
		return assignment.NotFound(assignment.CodeGroupNotFound, "group", groupID, requested), nil
	}

	candidates, err := s.repo.CandidateUserIDs(ctx, groupID, g.AccountID, requested)
	if err != nil {
		return assignment.Result{}, err
	}
	if len(candidates) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidUserIDs, requested), nil
	}

	if err := s.repo.AttachUsers(ctx, groupID, candidates); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewGroupMembershipChangedEvent(g.AccountID, groupID, "add_users", candidates))

	invalid := assignment.Diff(requested, candidates)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(candidates), invalid, nil,
			fmt.Sprintf("%d users added, %d ids rejected", len(candidates), len(invalid))), nil
	}
	return assignment.Success(len(candidates), "users added to group"), nil
}

// RemoveUsersFromGroup detaches members. When the group carries the Owner
// role and the removal would empty it of owners, the batch is refused
// unless some removed user keeps ownership through another path or other
// members remain.
func (s *Service) RemoveUsersFromGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(userIDs)

	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if g == nil {
		return assignment.NotFound(assignment.CodeGroupNotFound, "group", groupID, requested), nil
	}

	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	memberSet := make(map[int64]struct{}, len(members))
	for i := range members {
		memberSet[members[i].ID] = struct{}{}
	}

	var toRemove []int64
	for _, id := range requested {
		if _, ok := memberSet[id]; ok {
			toRemove = append(toRemove, id)
		}
	}
	if len(toRemove) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidUserIDs, requested), nil
	}

	carriesOwner, err := s.carriesOwnerRole(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if carriesOwner && len(toRemove) == len(members) {
		retained, err := s.ownership.AnyUserHasOwnershipOutsideGroup(ctx, toRemove, g.AccountID, groupID)
		if err != nil {
			return assignment.Result{}, err
		}
		if !retained {
			return assignment.SystemViolation(assignment.CodeLastOwner, nil,
				"removing these users would leave the account without an owner"), nil
		}
	}

	if err := s.repo.DetachUsers(ctx, groupID, toRemove); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewGroupMembershipChangedEvent(g.AccountID, groupID, "remove_users", toRemove))

	invalid := assignment.Diff(requested, toRemove)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(toRemove), invalid, nil,
			fmt.Sprintf("%d users removed, %d ids rejected", len(toRemove), len(invalid))), nil
	}
	return assignment.Success(len(toRemove), "users removed from group"), nil
}

// AssignRolesToGroup attaches account-scoped roles to the group.
func (s *Service) AssignRolesToGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(roleIDs)

	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if g == nil {
		return assignment.NotFound(assignment.CodeGroupNotFound, "group", groupID, requested), nil
	}

	candidates, err := s.repo.CandidateRoleIDs(ctx, groupID, g.AccountID, requested)
	if err != nil {
		return assignment.Result{}, err
	}
	if len(candidates) == 0 {
		return assignment.AllInvalid(assignment.CodeInvalidRoleIDs, requested), nil
	}

	if err := s.repo.AttachRoles(ctx, groupID, candidates); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewGroupMembershipChangedEvent(g.AccountID, groupID, "assign_roles", candidates))

	invalid := assignment.Diff(requested, candidates)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(candidates), invalid, nil,
			fmt.Sprintf("%d roles assigned, %d ids rejected", len(candidates), len(invalid))), nil
	}
	return assignment.Success(len(candidates), "roles assigned to group"), nil
}

// RemoveRolesFromGroup detaches roles. Removing the Owner role is refused
// while members depend on this group as their only ownership path.
func (s *Service) RemoveRolesFromGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error) {
	requested := assignment.Dedupe(roleIDs)

	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if g == nil {
		return assignment.NotFound(assignment.CodeGroupNotFound, "group", groupID, requested), nil
	}

	assigned, err := s.repo.AssignedRoles(ctx, groupID)
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
		members, err := s.repo.Members(ctx, groupID)
		if err != nil {
			return assignment.Result{}, err
		}
		if len(members) > 0 {
			memberIDs := make([]int64, 0, len(members))
			for i := range members {
				memberIDs = append(memberIDs, members[i].ID)
			}
			retained, err := s.ownership.AnyUserHasOwnershipOutsideGroup(ctx, memberIDs, g.AccountID, groupID)
			if err != nil {
				return assignment.Result{}, err
			}
			if !retained {
				return assignment.SystemViolation(assignment.CodeLastOwner, nil,
					"removing this role would leave the account without an owner"), nil
			}
		}
	}

	if err := s.repo.DetachRoles(ctx, groupID, toRemove); err != nil {
		return assignment.Result{}, err
	}
	s.publish(ctx, events.NewGroupMembershipChangedEvent(g.AccountID, groupID, "remove_roles", toRemove))

	invalid := assignment.Diff(requested, toRemove)
	if len(invalid) > 0 {
		return assignment.PartialSuccess(len(toRemove), invalid, nil,
			fmt.Sprintf("%d roles removed, %d ids rejected", len(toRemove), len(invalid))), nil
	}
	return assignment.Success(len(toRemove), "roles removed from group"), nil
}

func (s *Service) carriesOwnerRole(ctx context.Context, groupID int64) (bool, error) {
	roles, err := s.repo.AssignedRoles(ctx, groupID)
	if err != nil {
		return false, err
	}
	for i := range roles {
		if roles[i].IsSystemDefined && roles[i].Name == roledm.SystemRoleOwner {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("audit event publish failed", "event_type", event.EventType(), "error", err)
	}
}
