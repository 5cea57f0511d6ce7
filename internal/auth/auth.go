package auth

import (
	"context"
	"time"

	"github.com/aegis-identity/aegis/internal/core/datamodel/authtoken"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/golang-jwt/jwt/v5"
)

// ServiceAPI is the token lifecycle interface: credential sign-in, token
// issuance, validation, and revocation.
type ServiceAPI interface {
	SignIn(ctx context.Context, dto SignInDTO) (*TokenResult, error)
	IssueToken(ctx context.Context, userID int64, deviceID string, accountID *int64) (*TokenResult, error)
	ValidateToken(ctx context.Context, tokenString string) (*Validation, error)
	RevokeToken(ctx context.Context, userID int64, tokenID, deviceID string) (bool, error)
	RevokeAllTokensForUser(ctx context.Context, userID int64) error
}

// RepositoryAPI is the auth store contract; lookups return (nil, nil) on
// absence.
type RepositoryAPI interface {
	GetUserByID(ctx context.Context, userID int64) (*userdm.User, error)
	GetUserByUsername(ctx context.Context, username string) (*userdm.User, error)
	GetUserByPublicID(ctx context.Context, publicID string) (*userdm.User, error)
	UpdateLoginState(ctx context.Context, u *userdm.User) error

	CreateSignatureKey(ctx context.Context, key *userdm.SignatureKey) error
	GetSignatureKey(ctx context.Context, userID int64) (*userdm.SignatureKey, error)

	IsLinkedToAccount(ctx context.Context, accountID, userID int64) (bool, error)
	LinkedAccountIDs(ctx context.Context, userID int64) ([]int64, error)

	CreateToken(ctx context.Context, t *authtoken.AuthToken) error
	GetToken(ctx context.Context, tokenID string) (*authtoken.AuthToken, error)
	RevokeActiveToken(ctx context.Context, userID int64, deviceID string, accountID *int64, at time.Time) error
	RevokeTokenRow(ctx context.Context, userID int64, tokenID, deviceID string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error
}

// Claims is the JWT payload: registered claims plus the device binding.
type Claims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// TokenResult is returned by SignIn and IssueToken.
type TokenResult struct {
	Token             string    `json:"token"`
	TokenID           string    `json:"token_id"`
	ExpiresAt         time.Time `json:"expires_at"`
	AvailableAccounts []int64   `json:"available_accounts"`
}

// Validation is the identity extracted from a verified token.
type Validation struct {
	UserID            int64   `json:"user_id"`
	AccountID         *int64  `json:"account_id,omitempty"`
	DeviceID          string  `json:"device_id"`
	TokenID           string  `json:"token_id"`
	AvailableAccounts []int64 `json:"available_accounts"`
}
