package user

import (
	"context"

	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// ServiceAPI is the user-management capability interface.
type ServiceAPI interface {
	CreateUser(ctx context.Context, dto CreateUserDTO) (*userdm.User, error)
	GetUser(ctx context.Context, accountID, userID int64, hydrate bool) (*UserDetail, error)
	ListUsers(ctx context.Context, accountID int64, spec query.Spec) ([]userdm.User, error)
}

// SignatureKeyMinter creates and persists the signing key pair for a new
// user. Implemented by the auth package's key service.
type SignatureKeyMinter interface {
	MintSignatureKey(ctx context.Context, userID int64) error
}

// RepositoryAPI is the store contract; lookups return (nil, nil) on absence.
type RepositoryAPI interface {
	Create(ctx context.Context, u *userdm.User) error
	GetByID(ctx context.Context, userID int64) (*userdm.User, error)
	GetByUsername(ctx context.Context, username string) (*userdm.User, error)
	GetByEmail(ctx context.Context, email string) (*userdm.User, error)
	List(ctx context.Context, accountID int64, spec query.Spec) ([]userdm.User, error)

	LinkAccount(ctx context.Context, accountID, userID int64) error
	IsLinkedToAccount(ctx context.Context, accountID, userID int64) (bool, error)
	DirectRoles(ctx context.Context, accountID, userID int64) ([]roledm.Role, error)
	GroupDerivedRoles(ctx context.Context, accountID, userID int64) ([]roledm.Role, error)
}

// UserDetail is the hydrated read model returned by GetUser. GroupRoles is
// populated only when hydration is requested.
type UserDetail struct {
	User       userdm.User   `json:"user"`
	Roles      []roledm.Role `json:"roles"`
	GroupRoles []roledm.Role `json:"group_roles,omitempty"`
}
