package postgres

import (
	"context"
	"database/sql"
	"errors"

	groupdm "github.com/aegis-identity/aegis/internal/core/datamodel/group"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"gorm.io/gorm"
)

// listFields whitelists the columns user-supplied filters and sorts may
// reference.
var listFields = map[string]string{
	"name":        "name",
	"description": "description",
	"created_at":  "created_at",
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, g *groupdm.Group) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *Repository) Update(ctx context.Context, g *groupdm.Group) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *Repository) Delete(ctx context.Context, groupID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM group_users WHERE group_id = ?`, groupID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM group_roles WHERE group_id = ?`, groupID).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM groups WHERE id = ?`, groupID).Error
	})
}

func (r *Repository) GetByID(ctx context.Context, groupID int64) (*groupdm.Group, error) {
	var g groupdm.Group
	queryStr := `SELECT id, account_id, name, description FROM groups WHERE id = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, groupID).Row()
	if err := row.Scan(&g.ID, &g.AccountID, &g.Name, &g.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *Repository) GetByName(ctx context.Context, accountID int64, name string) (*groupdm.Group, error) {
	var g groupdm.Group
	queryStr := `SELECT id, account_id, name, description FROM groups WHERE account_id = ? AND name = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, accountID, name).Row()
	if err := row.Scan(&g.ID, &g.AccountID, &g.Name, &g.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *Repository) List(ctx context.Context, accountID int64, spec query.Spec) ([]groupdm.Group, error) {
	var groups []groupdm.Group
	err := r.db.WithContext(ctx).
		Table("groups").
		Scopes(spec.Scope(accountID, listFields)).
		Find(&groups).Error
	return groups, err
}

func (r *Repository) Members(ctx context.Context, groupID int64) ([]userdm.User, error) {
	queryStr := `
		SELECT u.id, u.public_id, u.username, u.email
		FROM users u
		JOIN group_users gu ON gu.user_id = u.id
		WHERE gu.group_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(queryStr, groupID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []userdm.User
	for rows.Next() {
		var u userdm.User
		if err := rows.Scan(&u.ID, &u.PublicID, &u.Username, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CandidateUserIDs returns the subset of the requested ids that belong to
// the group's account and are not already members.
func (r *Repository) CandidateUserIDs(ctx context.Context, groupID, accountID int64, userIDs []int64) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	queryStr := `
		SELECT u.id FROM users u
		JOIN account_users au ON au.user_id = u.id AND au.account_id = ?
		WHERE u.id IN ?
		  AND NOT EXISTS (SELECT 1 FROM group_users gu WHERE gu.group_id = ? AND gu.user_id = u.id)`

	return r.scanIDs(r.db.WithContext(ctx).Raw(queryStr, accountID, userIDs, groupID))
}

func (r *Repository) AttachUsers(ctx context.Context, groupID int64, userIDs []int64) error {
	rows := make([]groupdm.GroupUser, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, groupdm.GroupUser{GroupID: groupID, UserID: id})
	}
	return r.db.WithContext(ctx).Table("group_users").Create(&rows).Error
}

func (r *Repository) DetachUsers(ctx context.Context, groupID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec(`DELETE FROM group_users WHERE group_id = ? AND user_id IN ?`, groupID, userIDs).Error
}

func (r *Repository) AssignedRoles(ctx context.Context, groupID int64) ([]roledm.Role, error) {
	queryStr := `
		SELECT ro.id, ro.account_id, ro.name, ro.description, ro.is_system_defined
		FROM roles ro
		JOIN group_roles gr ON gr.role_id = ro.id
		WHERE gr.group_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(queryStr, groupID).Rows()
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

func (r *Repository) CandidateRoleIDs(ctx context.Context, groupID, accountID int64, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	queryStr := `
		SELECT ro.id FROM roles ro
		WHERE ro.id IN ? AND ro.account_id = ?
		  AND NOT EXISTS (SELECT 1 FROM group_roles gr WHERE gr.group_id = ? AND gr.role_id = ro.id)`

	return r.scanIDs(r.db.WithContext(ctx).Raw(queryStr, roleIDs, accountID, groupID))
}

func (r *Repository) AttachRoles(ctx context.Context, groupID int64, roleIDs []int64) error {
	rows := make([]roledm.GroupRole, 0, len(roleIDs))
	for _, id := range roleIDs {
		rows = append(rows, roledm.GroupRole{GroupID: groupID, RoleID: id})
	}
	return r.db.WithContext(ctx).Table("group_roles").Create(&rows).Error
}

func (r *Repository) DetachRoles(ctx context.Context, groupID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec(`DELETE FROM group_roles WHERE group_id = ? AND role_id IN ?`, groupID, roleIDs).Error
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
