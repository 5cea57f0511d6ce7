package authtoken

import "time"

// AuthToken is the tracking row persisted for every issued JWT, keyed by
// the public token id (jti). At most one non-revoked row exists per
// (user, device, account-or-null) triple; issuing a new token revokes the
// prior matching one.
type AuthToken struct {
	ID        int64      `gorm:"primaryKey"`
	TokenID   string     `gorm:"column:token_id;uniqueIndex;not null"`
	UserID    int64      `gorm:"column:user_id;not null"`
	AccountID *int64     `gorm:"column:account_id"`
	DeviceID  string     `gorm:"column:device_id;not null"`
	IssuedAt  time.Time  `gorm:"column:issued_at;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (t *AuthToken) IsRevoked() bool {
	return t.RevokedAt != nil
}
