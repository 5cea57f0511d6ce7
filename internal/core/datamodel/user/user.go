package user

import "time"

type User struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	PublicID         string     `gorm:"column:public_id;uniqueIndex;not null" json:"public_id"`
	Username         string     `gorm:"column:username;uniqueIndex;not null" json:"username"`
	Email            string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"column:password_hash;not null" json:"-"`
	LockedOutUntil   *time.Time `gorm:"column:locked_out_until" json:"-"`
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0" json:"-"`
	LoginCount       int64      `gorm:"column:login_count;default:0" json:"login_count"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// SignatureKey holds the asymmetric key pair minted when a user is created.
// The private key is stored encrypted under the system symmetric key and is
// only decrypted for the duration of a single signing operation.
type SignatureKey struct {
	ID                  int64     `gorm:"primaryKey"`
	UserID              int64     `gorm:"column:user_id;uniqueIndex;not null"`
	PublicKeyPEM        string    `gorm:"column:public_key_pem;not null"`
	EncryptedPrivateKey []byte    `gorm:"column:encrypted_private_key;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
}

// IsLockedOut reports whether the user's lockout window is still open at
// the given instant.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockedOutUntil != nil && now.Before(*u.LockedOutUntil)
}
