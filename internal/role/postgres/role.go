package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"gorm.io/gorm"
)

// listFields whitelists the columns user-supplied filters and sorts may
// reference.
var listFields = map[string]string{
	"name":              "name",
	"description":       "description",
	"is_system_defined": "is_system_defined",
	"created_at":        "created_at",
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, role *roledm.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *Repository) Update(ctx context.Context, role *roledm.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

func (r *Repository) Delete(ctx context.Context, roleID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM role_permissions WHERE role_id = ?`, roleID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM user_roles WHERE role_id = ?`, roleID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM group_roles WHERE role_id = ?`, roleID).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM roles WHERE id = ?`, roleID).Error
	})
}

func (r *Repository) GetByID(ctx context.Context, roleID int64) (*roledm.Role, error) {
	var role roledm.Role
	queryStr := `SELECT id, account_id, name, description, is_system_defined FROM roles WHERE id = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, roleID).Row()
	if err := row.Scan(&role.ID, &role.AccountID, &role.Name, &role.Description, &role.IsSystemDefined); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *Repository) GetByName(ctx context.Context, accountID int64, name string) (*roledm.Role, error) {
	var role roledm.Role
	queryStr := `SELECT id, account_id, name, description, is_system_defined FROM roles WHERE account_id = ? AND name = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, accountID, name).Row()
	if err := row.Scan(&role.ID, &role.AccountID, &role.Name, &role.Description, &role.IsSystemDefined); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *Repository) List(ctx context.Context, accountID int64, spec query.Spec) ([]roledm.Role, error) {
	var roles []roledm.Role
	err := r.db.WithContext(ctx).
		Table("roles").
		Scopes(spec.Scope(accountID, listFields)).
		Find(&roles).Error
	return roles, err
}

func (r *Repository) AttachedPermissions(ctx context.Context, roleID int64) ([]permission.Permission, error) {
	queryStr := `
		SELECT p.id, p.account_id, p.resource_type, p.resource_id, p.description,
		       p.can_create, p.can_read, p.can_update, p.can_delete, p.can_execute,
		       p.is_system_defined
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(queryStr, roleID).Rows()
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

// CandidatePermissionIDs returns the subset of the requested ids that
// exist in the role's account and are not already attached.
func (r *Repository) CandidatePermissionIDs(ctx context.Context, roleID, accountID int64, permissionIDs []int64) ([]int64, error) {
	if len(permissionIDs) == 0 {
		return nil, nil
	}
	queryStr := `
		SELECT p.id FROM permissions p
		WHERE p.id IN ? AND p.account_id = ?
		  AND NOT EXISTS (SELECT 1 FROM role_permissions rp WHERE rp.role_id = ? AND rp.permission_id = p.id)`

	return r.scanIDs(r.db.WithContext(ctx).Raw(queryStr, permissionIDs, accountID, roleID))
}

func (r *Repository) AttachPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	rows := make([]roledm.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, roledm.RolePermission{RoleID: roleID, PermissionID: id})
	}
	return r.db.WithContext(ctx).Table("role_permissions").Create(&rows).Error
}

func (r *Repository) DetachPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec(`DELETE FROM role_permissions WHERE role_id = ? AND permission_id IN ?`, roleID, permissionIDs).Error
}

func (r *Repository) GetUserInAccount(ctx context.Context, accountID, userID int64) (*userdm.User, error) {
	var u userdm.User
	queryStr := `
		SELECT u.id, u.public_id, u.username, u.email
		FROM users u
		JOIN account_users au ON au.user_id = u.id
		WHERE u.id = ? AND au.account_id = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, userID, accountID).Row()
	if err := row.Scan(&u.ID, &u.PublicID, &u.Username, &u.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) CandidateRoleIDsForUser(ctx context.Context, userID, accountID int64, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	queryStr := `
		SELECT ro.id FROM roles ro
		WHERE ro.id IN ? AND ro.account_id = ?
		  AND NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = ? AND ur.role_id = ro.id)`

	return r.scanIDs(r.db.WithContext(ctx).Raw(queryStr, roleIDs, accountID, userID))
}

func (r *Repository) AssignedRoles(ctx context.Context, userID, accountID int64) ([]roledm.Role, error) {
	queryStr := `
		SELECT ro.id, ro.account_id, ro.name, ro.description, ro.is_system_defined
		FROM roles ro
		JOIN user_roles ur ON ur.role_id = ro.id
		WHERE ur.user_id = ? AND ro.account_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(queryStr, userID, accountID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []roledm.Role
	for rows.Next() {
		var ro roledm.Role
		if err := rows.Scan(&ro.ID, &ro.AccountID, &ro.Name, &ro.Description, &ro.IsSystemDefined); err != nil {
			return nil, err
		}
		roles = append(roles, ro)
	}
	return roles, rows.Err()
}

func (r *Repository) AttachRolesToUser(ctx context.Context, userID int64, roleIDs []int64) error {
	rows := make([]roledm.UserRole, 0, len(roleIDs))
	for _, id := range roleIDs {
		rows = append(rows, roledm.UserRole{UserID: userID, RoleID: id})
	}
	return r.db.WithContext(ctx).Table("user_roles").Create(&rows).Error
}

func (r *Repository) DetachRolesFromUser(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec(`DELETE FROM user_roles WHERE user_id = ? AND role_id IN ?`, userID, roleIDs).Error
}

func (r *Repository) scanIDs(tx *gorm.DB) ([]int64, error) {
	rows, err := tx.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
