package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aegis-identity/aegis/internal/core/datamodel/authtoken"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUserByID(ctx context.Context, userID int64) (*userdm.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, userID)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*userdm.User, error) {
	return r.getUser(ctx, `WHERE username = ?`, username)
}

func (r *Repository) GetUserByPublicID(ctx context.Context, publicID string) (*userdm.User, error) {
	return r.getUser(ctx, `WHERE public_id = ?`, publicID)
}

func (r *Repository) getUser(ctx context.Context, where string, arg interface{}) (*userdm.User, error) {
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

func (r *Repository) UpdateLoginState(ctx context.Context, u *userdm.User) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET locked_out_until = ?, failed_login_count = ?, login_count = ?, updated_at = ?
		WHERE id = ?`,
		u.LockedOutUntil, u.FailedLoginCount, u.LoginCount, time.Now(), u.ID).Error
}

func (r *Repository) CreateSignatureKey(ctx context.Context, key *userdm.SignatureKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *Repository) GetSignatureKey(ctx context.Context, userID int64) (*userdm.SignatureKey, error) {
	var k userdm.SignatureKey
	queryStr := `SELECT id, user_id, public_key_pem, encrypted_private_key FROM signature_keys WHERE user_id = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, userID).Row()
	if err := row.Scan(&k.ID, &k.UserID, &k.PublicKeyPEM, &k.EncryptedPrivateKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
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

func (r *Repository) LinkedAccountIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.WithContext(ctx).
		Raw(`SELECT account_id FROM account_users WHERE user_id = ? ORDER BY account_id`, userID).Rows()
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

func (r *Repository) CreateToken(ctx context.Context, t *authtoken.AuthToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) GetToken(ctx context.Context, tokenID string) (*authtoken.AuthToken, error) {
	var t authtoken.AuthToken
	queryStr := `
		SELECT id, token_id, user_id, account_id, device_id, issued_at, expires_at, revoked_at
		FROM auth_tokens WHERE token_id = ?`
	row := r.db.WithContext(ctx).Raw(queryStr, tokenID).Row()
	if err := row.Scan(&t.ID, &t.TokenID, &t.UserID, &t.AccountID, &t.DeviceID,
		&t.IssuedAt, &t.ExpiresAt, &t.RevokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// RevokeActiveToken revokes the live token for the exact
// (user, device, account-or-null) triple. Tokens for other devices or
// other account selections are untouched.
func (r *Repository) RevokeActiveToken(ctx context.Context, userID int64, deviceID string, accountID *int64, at time.Time) error {
	if accountID == nil {
		return r.db.WithContext(ctx).Exec(`
			UPDATE auth_tokens SET revoked_at = ?
			WHERE user_id = ? AND device_id = ? AND account_id IS NULL AND revoked_at IS NULL`,
			at, userID, deviceID).Error
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE auth_tokens SET revoked_at = ?
		WHERE user_id = ? AND device_id = ? AND account_id = ? AND revoked_at IS NULL`,
		at, userID, deviceID, *accountID).Error
}

func (r *Repository) RevokeTokenRow(ctx context.Context, userID int64, tokenID, deviceID string, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
		UPDATE auth_tokens SET revoked_at = ?
		WHERE token_id = ? AND user_id = ? AND device_id = ? AND revoked_at IS NULL`,
		at, tokenID, userID, deviceID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *Repository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE auth_tokens SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`,
		at, userID).Error
}
