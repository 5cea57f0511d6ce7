package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aegis-identity/aegis/internal"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service implements user provisioning and account-scoped reads. New users
// get a bcrypt password hash, a public uuid, a signature key pair, and a
// link to the creating account.
type Service struct {
	repo       RepositoryAPI
	keys       SignatureKeyMinter
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, keys SignatureKeyMinter, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		keys:       keys,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) CreateUser(ctx context.Context, dto CreateUserDTO) (*userdm.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByUsername(ctx, dto.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("username %q is already taken", dto.Username),
			internal.ErrCodeDuplicateName)
	}
	if existing, err := s.repo.GetByEmail(ctx, dto.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, internal.NewConflictError(
			"email is already registered",
			internal.ErrCodeDuplicateName)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password").WithCause(err)
	}

	u := &userdm.User{
		PublicID:     uuid.NewString(),
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return nil, err
	}
	if err := s.repo.LinkAccount(ctx, dto.AccountID, u.ID); err != nil {
		s.logger.Error("failed to link user to account", "error", err,
			"user_id", u.ID, "account_id", dto.AccountID)
		return nil, err
	}
	if err := s.keys.MintSignatureKey(ctx, u.ID); err != nil {
		s.logger.Error("failed to mint signature key", "error", err, "user_id", u.ID)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "account_id", dto.AccountID)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, accountID, userID int64, hydrate bool) (*UserDetail, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}
	linked, err := s.repo.IsLinkedToAccount(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}

	detail := &UserDetail{User: *u}
	detail.Roles, err = s.repo.DirectRoles(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if hydrate {
		detail.GroupRoles, err = s.repo.GroupDerivedRoles(ctx, accountID, userID)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *Service) ListUsers(ctx context.Context, accountID int64, spec query.Spec) ([]userdm.User, error) {
	return s.repo.List(ctx, accountID, spec)
}
