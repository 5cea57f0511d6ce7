package role

import "time"

// System-defined role names created automatically for every account.
const (
	SystemRoleOwner = "Owner"
	SystemRoleAdmin = "Admin"
	SystemRoleUser  = "User"
)

type Role struct {
	ID              int64     `gorm:"primaryKey"`
	AccountID       int64     `gorm:"column:account_id;not null;uniqueIndex:idx_role_account_name"`
	Name            string    `gorm:"column:name;not null;uniqueIndex:idx_role_account_name"`
	Description     string    `gorm:"column:description"`
	IsSystemDefined bool      `gorm:"column:is_system_defined;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type RolePermission struct {
	ID           int64     `gorm:"primaryKey"`
	RoleID       int64     `gorm:"column:role_id;not null;uniqueIndex:idx_role_permission"`
	PermissionID int64     `gorm:"column:permission_id;not null;uniqueIndex:idx_role_permission"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

type UserRole struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_user_role"`
	RoleID    int64     `gorm:"column:role_id;not null;uniqueIndex:idx_user_role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type GroupRole struct {
	ID        int64     `gorm:"primaryKey"`
	GroupID   int64     `gorm:"column:group_id;not null;uniqueIndex:idx_group_role"`
	RoleID    int64     `gorm:"column:role_id;not null;uniqueIndex:idx_group_role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
