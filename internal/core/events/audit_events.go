package events

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types published by the assignment and auth services so a
// subscriber can keep an audit trail of privilege changes.
const (
	EventTypeRoleAssignmentChanged  = "iam.role_assignment.changed"
	EventTypeGroupMembershipChanged = "iam.group_membership.changed"
	EventTypeTokenIssued            = "iam.token.issued"
	EventTypeTokenRevoked           = "iam.token.revoked"
)

func NewRoleAssignmentChangedEvent(accountID, roleID int64, operation string, affectedIDs []int64) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeRoleAssignmentChanged,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account_id":   accountID,
			"role_id":      roleID,
			"operation":    operation,
			"affected_ids": affectedIDs,
		},
	}
}

func NewGroupMembershipChangedEvent(accountID, groupID int64, operation string, affectedIDs []int64) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeGroupMembershipChanged,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account_id":   accountID,
			"group_id":     groupID,
			"operation":    operation,
			"affected_ids": affectedIDs,
		},
	}
}

func NewTokenIssuedEvent(userID int64, tokenID, deviceID string) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeTokenIssued,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"user_id":   userID,
			"token_id":  tokenID,
			"device_id": deviceID,
		},
	}
}

func NewTokenRevokedEvent(userID int64, tokenID string) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeTokenRevoked,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"user_id":  userID,
			"token_id": tokenID,
		},
	}
}
