package group

import "time"

type Group struct {
	ID          int64     `gorm:"primaryKey"`
	AccountID   int64     `gorm:"column:account_id;not null;uniqueIndex:idx_group_account_name"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_group_account_name"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type GroupUser struct {
	ID        int64     `gorm:"primaryKey"`
	GroupID   int64     `gorm:"column:group_id;not null;uniqueIndex:idx_group_user"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_group_user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
