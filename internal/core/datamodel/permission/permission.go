package permission

import "time"

// Action is one of the five capability flags a permission can grant.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
)

// ResourceTypeAll is the wildcard resource type matching every type.
const ResourceTypeAll = "*"

// Resource types known to the system.
const (
	ResourceTypeAccount    = "Account"
	ResourceTypeUser       = "User"
	ResourceTypeRole       = "Role"
	ResourceTypeGroup      = "Group"
	ResourceTypePermission = "Permission"
)

// AllInstances is the sentinel resource id meaning "every instance of the
// resource type".
const AllInstances int64 = 0

type Permission struct {
	ID              int64     `gorm:"primaryKey"`
	AccountID       int64     `gorm:"column:account_id;not null;uniqueIndex:idx_permission_grant"`
	ResourceType    string    `gorm:"column:resource_type;not null;uniqueIndex:idx_permission_grant"`
	ResourceID      int64     `gorm:"column:resource_id;default:0;uniqueIndex:idx_permission_grant"`
	Description     string    `gorm:"column:description"`
	CanCreate       bool      `gorm:"column:can_create;default:false;uniqueIndex:idx_permission_grant"`
	CanRead         bool      `gorm:"column:can_read;default:false;uniqueIndex:idx_permission_grant"`
	CanUpdate       bool      `gorm:"column:can_update;default:false;uniqueIndex:idx_permission_grant"`
	CanDelete       bool      `gorm:"column:can_delete;default:false;uniqueIndex:idx_permission_grant"`
	CanExecute      bool      `gorm:"column:can_execute;default:false;uniqueIndex:idx_permission_grant"`
	IsSystemDefined bool      `gorm:"column:is_system_defined;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Allows reports whether the permission carries the flag for the action.
func (p *Permission) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return p.CanCreate
	case ActionRead:
		return p.CanRead
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	case ActionExecute:
		return p.CanExecute
	default:
		return false
	}
}

// MatchesResource reports whether the permission covers the requested
// resource type and id. A nil resourceID means the request is not scoped to
// a particular instance.
func (p *Permission) MatchesResource(resourceType string, resourceID *int64) bool {
	if p.ResourceType != resourceType && p.ResourceType != ResourceTypeAll {
		return false
	}
	if resourceID == nil {
		return true
	}
	return p.ResourceID == *resourceID || p.ResourceID == AllInstances
}

// Grants is the full matching rule: account scope, resource scope and the
// action flag must all line up.
func (p *Permission) Grants(accountID int64, action Action, resourceType string, resourceID *int64) bool {
	if p.AccountID != accountID {
		return false
	}
	if !p.MatchesResource(resourceType, resourceID) {
		return false
	}
	return p.Allows(action)
}
