package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindOwnerRoleID(ctx context.Context, accountID int64) (int64, error) {
	var roleID int64
	query := `SELECT id FROM roles WHERE account_id = ? AND name = ? AND is_system_defined = true`
	row := r.db.WithContext(ctx).Raw(query, accountID, role.SystemRoleOwner).Row()
	if err := row.Scan(&roleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return roleID, nil
}

func (r *Repository) UserHasRoleDirect(ctx context.Context, userID, roleID int64) (bool, error) {
	var count int64
	query := `SELECT COUNT(1) FROM user_roles WHERE user_id = ? AND role_id = ?`
	row := r.db.WithContext(ctx).Raw(query, userID, roleID).Row()
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) GroupsGrantingRole(ctx context.Context, userID, roleID int64) ([]int64, error) {
	query := `
		SELECT gu.group_id
		FROM group_users gu
		JOIN group_roles gr ON gr.group_id = gu.group_id
		WHERE gu.user_id = ? AND gr.role_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(query, userID, roleID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groupIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		groupIDs = append(groupIDs, id)
	}
	return groupIDs, rows.Err()
}

// OtherAccountMemberHasRole checks whether any user besides excludeUserID
// who is still linked to the account reaches the role directly or via a
// group.
func (r *Repository) OtherAccountMemberHasRole(ctx context.Context, accountID, roleID, excludeUserID int64) (bool, error) {
	var count int64
	query := `
		SELECT COUNT(1) FROM account_users au
		WHERE au.account_id = ? AND au.user_id <> ?
		  AND (
			EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = au.user_id AND ur.role_id = ?)
			OR EXISTS (
				SELECT 1 FROM group_users gu
				JOIN group_roles gr ON gr.group_id = gu.group_id
				WHERE gu.user_id = au.user_id AND gr.role_id = ?
			)
		  )`

	row := r.db.WithContext(ctx).Raw(query, accountID, excludeUserID, roleID, roleID).Row()
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
