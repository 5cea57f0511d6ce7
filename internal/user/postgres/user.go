package postgres

import (
	"context"
	"database/sql"
	"errors"

	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"gorm.io/gorm"
)

// listFields whitelists the columns user-supplied filters and sorts may
// reference. Columns are table-qualified because listing joins through
// account_users.
var listFields = map[string]string{
	"username":   "users.username",
	"email":      "users.email",
	"created_at": "users.created_at",
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *userdm.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*userdm.User, error) {
	return r.getOne(ctx, `WHERE id = ?`, userID)
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*userdm.User, error) {
	return r.getOne(ctx, `WHERE username = ?`, username)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*userdm.User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

func (r *Repository) getOne(ctx context.Context, where string, arg interface{}) (*userdm.User, error) {
	var u userdm.User
	queryStr := `
		SELECT id, public_id, username, email, password_hash,
		       locked_out_until, failed_login_count, login_count
		FROM users ` + where
	row := r.db.WithContext(ctx).Raw(queryStr, arg).Row()
	if err := row.Scan(&u.ID, &u.PublicID, &u.Username, &u.Email, &u.PasswordHash,
		&u.LockedOutUntil, &u.FailedLoginCount, &u.LoginCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) List(ctx context.Context, accountID int64, spec query.Spec) ([]userdm.User, error) {
	var users []userdm.User
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("JOIN account_users ON account_users.user_id = users.id").
		Scopes(spec.Scope(accountID, listFields)).
		Find(&users).Error
	return users, err
}

func (r *Repository) LinkAccount(ctx context.Context, accountID, userID int64) error {
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO account_users (account_id, user_id) VALUES (?, ?)`, accountID, userID).Error
}

func (r *Repository) IsLinkedToAccount(ctx context.Context, accountID, userID int64) (bool, error) {
	var linked bool
	queryStr := `SELECT EXISTS (SELECT 1 FROM account_users WHERE account_id = ? AND user_id = ?)`
	row := r.db.WithContext(ctx).Raw(queryStr, accountID, userID).Row()
	if err := row.Scan(&linked); err != nil {
		return false, err
	}
	return linked, nil
}

func (r *Repository) DirectRoles(ctx context.Context, accountID, userID int64) ([]roledm.Role, error) {
	queryStr := `
		SELECT ro.id, ro.account_id, ro.name, ro.description, ro.is_system_defined
		FROM roles ro
		JOIN user_roles ur ON ur.role_id = ro.id
		WHERE ur.user_id = ? AND ro.account_id = ?`
	return r.scanRoles(ctx, queryStr, userID, accountID)
}

// GroupDerivedRoles returns roles the user holds only through group
// membership, direct assignments excluded.
func (r *Repository) GroupDerivedRoles(ctx context.Context, accountID, userID int64) ([]roledm.Role, error) {
	queryStr := `
		SELECT DISTINCT ro.id, ro.account_id, ro.name, ro.description, ro.is_system_defined
		FROM roles ro
		JOIN group_roles gr ON gr.role_id = ro.id
		JOIN group_users gu ON gu.group_id = gr.group_id
		WHERE gu.user_id = ? AND ro.account_id = ?
		  AND NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = gu.user_id AND ur.role_id = ro.id)`
	return r.scanRoles(ctx, queryStr, userID, accountID)
}

func (r *Repository) scanRoles(ctx context.Context, queryStr string, args ...interface{}) ([]roledm.Role, error) {
	rows, err := r.db.WithContext(ctx).Raw(queryStr, args...).Rows()
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
