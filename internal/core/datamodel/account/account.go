package account

import "time"

type Account struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AccountUser links a user to an account. Users may belong to any number
// of accounts.
type AccountUser struct {
	ID        int64     `gorm:"primaryKey"`
	AccountID int64     `gorm:"column:account_id;not null;uniqueIndex:idx_account_user"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_account_user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
