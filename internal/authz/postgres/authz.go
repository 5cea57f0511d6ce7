package postgres

import (
	"context"

	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPermissionsForUser returns every permission attached to a role the
// user holds directly or reaches through group membership, scoped to the
// account. Duplicates across paths are collapsed by DISTINCT.
func (r *Repository) FindPermissionsForUser(ctx context.Context, accountID, userID int64) ([]permission.Permission, error) {
	query := `
		SELECT DISTINCT p.id, p.account_id, p.resource_type, p.resource_id, p.description,
		       p.can_create, p.can_read, p.can_update, p.can_delete, p.can_execute,
		       p.is_system_defined
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE p.account_id = ?
		  AND rp.role_id IN (
			SELECT ur.role_id FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = ? AND r.account_id = ?
			UNION
			SELECT gr.role_id FROM group_roles gr
			JOIN group_users gu ON gu.group_id = gr.group_id
			JOIN roles r ON r.id = gr.role_id
			WHERE gu.user_id = ? AND r.account_id = ?
		  )`

	rows, err := r.db.WithContext(ctx).Raw(query, accountID, userID, accountID, userID, accountID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []permission.Permission
	for rows.Next() {
		var p permission.Permission
		if err := rows.Scan(&p.ID, &p.AccountID, &p.ResourceType, &p.ResourceID, &p.Description,
			&p.CanCreate, &p.CanRead, &p.CanUpdate, &p.CanDelete, &p.CanExecute,
			&p.IsSystemDefined); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
