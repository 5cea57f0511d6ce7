package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/core/datamodel/authtoken"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service implements the token lifecycle. Issuing a token revokes the
// prior active token for the same (user, device, account-or-null) triple,
// so at most one live token exists per triple.
type Service struct {
	repo   RepositoryAPI
	keys   *KeyService
	cfg    internal.SecurityConfig
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, keys *KeyService, cfg internal.SecurityConfig, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		keys:   keys,
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) SignIn(ctx context.Context, dto SignInDTO) (*TokenResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByUsername(ctx, dto.Username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, internal.ErrInvalidCredentials
	}
	now := s.now()
	if u.IsLockedOut(now) {
		return nil, internal.ErrUserLockedOut
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, s.recordFailedLogin(ctx, u, now)
	}

	u.FailedLoginCount = 0
	u.LockedOutUntil = nil
	u.LoginCount++
	if err := s.repo.UpdateLoginState(ctx, u); err != nil {
		return nil, err
	}

	return s.IssueToken(ctx, u.ID, dto.DeviceID, dto.AccountID)
}

func (s *Service) recordFailedLogin(ctx context.Context, u *userdm.User, now time.Time) error {
	u.FailedLoginCount++
	if s.cfg.MaxLoginTries > 0 && u.FailedLoginCount >= s.cfg.MaxLoginTries {
		until := now.Add(s.cfg.LockoutWindow)
		u.LockedOutUntil = &until
		u.FailedLoginCount = 0
	}
	if err := s.repo.UpdateLoginState(ctx, u); err != nil {
		s.logger.Error("failed to persist login counters", "error", err, "user_id", u.ID)
	}
	return internal.ErrInvalidCredentials
}

func (s *Service) IssueToken(ctx context.Context, userID int64, deviceID string, accountID *int64) (*TokenResult, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}

	if accountID != nil {
		linked, err := s.repo.IsLinkedToAccount(ctx, *accountID, userID)
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, internal.NewNotFoundError("account not found", internal.ErrCodeAccountNotFound)
		}
	}

	priv, err := s.keys.SigningKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.RevokeActiveToken(ctx, userID, deviceID, accountID, now); err != nil {
		return nil, err
	}

	tokenID := uuid.NewString()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.PublicID,
			ID:        tokenID,
			Issuer:    s.cfg.TokenIssuer,
			Audience:  jwt.ClaimStrings{s.cfg.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign token").WithCause(err)
	}

	row := &authtoken.AuthToken{
		TokenID:   tokenID,
		UserID:    userID,
		AccountID: accountID,
		DeviceID:  deviceID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.CreateToken(ctx, row); err != nil {
		return nil, err
	}

	accounts, err := s.repo.LinkedAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewTokenIssuedEvent(userID, tokenID, deviceID))
	return &TokenResult{
		Token:             signed,
		TokenID:           tokenID,
		ExpiresAt:         expiresAt,
		AvailableAccounts: accounts,
	}, nil
}

func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Validation, error) {
	var unverified Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &unverified); err != nil {
		return nil, internal.NewUnauthorizedError("malformed token", internal.ErrCodeInvalidTokenFormat)
	}
	if unverified.Subject == "" {
		return nil, internal.NewUnauthorizedError("token has no subject", internal.ErrCodeMissingUserIDClaim)
	}
	if _, err := uuid.Parse(unverified.Subject); err != nil {
		return nil, internal.NewUnauthorizedError("token subject is not a user id", internal.ErrCodeMissingUserIDClaim)
	}

	u, err := s.repo.GetUserByPublicID(ctx, unverified.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, internal.NewUnauthorizedError("token validation failed", internal.ErrCodeTokenValidationFailed)
	}

	pub, err := s.keys.VerificationKey(ctx, u.ID)
	if err != nil {
		return nil, internal.NewUnauthorizedError("token validation failed", internal.ErrCodeTokenValidationFailed)
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (interface{}, error) { return pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.cfg.TokenIssuer),
		jwt.WithAudience(s.cfg.TokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, internal.NewUnauthorizedError("token validation failed", internal.ErrCodeTokenValidationFailed)
	}

	row, err := s.repo.GetToken(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.IsRevoked() {
		return nil, internal.NewUnauthorizedError("token validation failed", internal.ErrCodeTokenValidationFailed)
	}

	accounts, err := s.repo.LinkedAccountIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Validation{
		UserID:            u.ID,
		AccountID:         row.AccountID,
		DeviceID:          claims.DeviceID,
		TokenID:           row.TokenID,
		AvailableAccounts: accounts,
	}, nil
}

// RevokeToken marks the named token revoked. Revoking an absent or
// already revoked token is a no-op and returns false.
func (s *Service) RevokeToken(ctx context.Context, userID int64, tokenID, deviceID string) (bool, error) {
	revoked, err := s.repo.RevokeTokenRow(ctx, userID, tokenID, deviceID, s.now())
	if err != nil {
		return false, err
	}
	if revoked {
		s.publish(ctx, events.NewTokenRevokedEvent(userID, tokenID))
	}
	return revoked, nil
}

func (s *Service) RevokeAllTokensForUser(ctx context.Context, userID int64) error {
	if err := s.repo.RevokeAllForUser(ctx, userID, s.now()); err != nil {
		return err
	}
	s.publish(ctx, events.NewTokenRevokedEvent(userID, ""))
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish auth event", "error", err, "event_type", event.EventType())
	}
}
