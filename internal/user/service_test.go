package user_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-identity/aegis/internal"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/aegis-identity/aegis/internal/user"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

// Mock repository for testing
type mockUserRepository struct {
	usersByID      map[int64]*userdm.User
	linked         map[[2]int64]bool
	directRoles    []roledm.Role
	groupRoles     []roledm.Role
	nextID         int64
	createdUsers   []*userdm.User
	linkCalls      [][2]int64
	groupRoleCalls int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		usersByID: make(map[int64]*userdm.User),
		linked:    make(map[[2]int64]bool),
		nextID:    1,
	}
}

func (m *mockUserRepository) Create(_ context.Context, u *userdm.User) error {
	u.ID = m.nextID
	m.nextID++
	m.usersByID[u.ID] = u
	m.createdUsers = append(m.createdUsers, u)
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, userID int64) (*userdm.User, error) {
	return m.usersByID[userID], nil
}

func (m *mockUserRepository) GetByUsername(_ context.Context, username string) (*userdm.User, error) {
	for _, u := range m.usersByID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*userdm.User, error) {
	for _, u := range m.usersByID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) List(_ context.Context, _ int64, _ query.Spec) ([]userdm.User, error) {
	out := make([]userdm.User, 0, len(m.usersByID))
	for _, u := range m.usersByID {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepository) LinkAccount(_ context.Context, accountID, userID int64) error {
	m.linked[[2]int64{accountID, userID}] = true
	m.linkCalls = append(m.linkCalls, [2]int64{accountID, userID})
	return nil
}

func (m *mockUserRepository) IsLinkedToAccount(_ context.Context, accountID, userID int64) (bool, error) {
	return m.linked[[2]int64{accountID, userID}], nil
}

func (m *mockUserRepository) DirectRoles(_ context.Context, _, _ int64) ([]roledm.Role, error) {
	return m.directRoles, nil
}

func (m *mockUserRepository) GroupDerivedRoles(_ context.Context, _, _ int64) ([]roledm.Role, error) {
	m.groupRoleCalls++
	return m.groupRoles, nil
}

// Mock key minter for testing
type mockKeyMinter struct {
	mintedUserIDs []int64
	err           error
}

func (m *mockKeyMinter) MintSignatureKey(_ context.Context, userID int64) error {
	if m.err != nil {
		return m.err
	}
	m.mintedUserIDs = append(m.mintedUserIDs, userID)
	return nil
}

var _ = Describe("UserService", func() {
	var (
		repo   *mockUserRepository
		minter *mockKeyMinter
		svc    *user.Service
		ctx    context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		repo = newMockUserRepository()
		minter = &mockKeyMinter{}
		svc = user.NewService(repo, minter, bcrypt.MinCost, testLogger)
		ctx = context.Background()
	})

	Describe("CreateUser", func() {
		validDTO := func() user.CreateUserDTO {
			return user.CreateUserDTO{
				AccountID: 1,
				Username:  "alice",
				Email:     "alice@example.com",
				Password:  "s3cret-pass",
			}
		}

		Context("with valid input", func() {
			It("should hash the password, link the account, and mint a key", func() {
				created, err := svc.CreateUser(ctx, validDTO())

				Expect(err).NotTo(HaveOccurred())
				Expect(created.ID).NotTo(BeZero())
				Expect(created.PublicID).NotTo(BeEmpty())
				Expect(created.PasswordHash).NotTo(Equal("s3cret-pass"))
				Expect(bcrypt.CompareHashAndPassword(
					[]byte(created.PasswordHash), []byte("s3cret-pass"))).To(Succeed())
				Expect(repo.linkCalls).To(Equal([][2]int64{{1, created.ID}}))
				Expect(minter.mintedUserIDs).To(Equal([]int64{created.ID}))
			})
		})

		Context("when the username is already taken", func() {
			It("should return a conflict error without creating anything", func() {
				repo.usersByID[9] = &userdm.User{ID: 9, Username: "alice", Email: "other@example.com"}

				created, err := svc.CreateUser(ctx, validDTO())

				Expect(created).To(BeNil())
				var appErr *internal.AppError
				Expect(err).To(BeAssignableToTypeOf(appErr))
				Expect(err.(*internal.AppError).Code).To(Equal(internal.ErrCodeDuplicateName))
				Expect(repo.createdUsers).To(BeEmpty())
				Expect(minter.mintedUserIDs).To(BeEmpty())
			})
		})

		Context("when the email is already registered", func() {
			It("should return a conflict error", func() {
				repo.usersByID[9] = &userdm.User{ID: 9, Username: "bob", Email: "alice@example.com"}

				created, err := svc.CreateUser(ctx, validDTO())

				Expect(created).To(BeNil())
				Expect(err.(*internal.AppError).Code).To(Equal(internal.ErrCodeDuplicateName))
			})
		})

		Context("with an invalid password", func() {
			It("should return a validation error before touching the store", func() {
				dto := validDTO()
				dto.Password = "short"

				created, err := svc.CreateUser(ctx, dto)

				Expect(created).To(BeNil())
				Expect(err).To(HaveOccurred())
				Expect(repo.createdUsers).To(BeEmpty())
			})
		})
	})

	Describe("GetUser", func() {
		BeforeEach(func() {
			repo.usersByID[5] = &userdm.User{ID: 5, Username: "alice", Email: "alice@example.com"}
			repo.linked[[2]int64{1, 5}] = true
			repo.directRoles = []roledm.Role{{ID: 10, Name: "Admin"}}
			repo.groupRoles = []roledm.Role{{ID: 11, Name: "User"}}
		})

		Context("when the user exists in the account", func() {
			It("should return direct roles without group roles by default", func() {
				detail, err := svc.GetUser(ctx, 1, 5, false)

				Expect(err).NotTo(HaveOccurred())
				Expect(detail.User.ID).To(Equal(int64(5)))
				Expect(detail.Roles).To(HaveLen(1))
				Expect(detail.GroupRoles).To(BeNil())
				Expect(repo.groupRoleCalls).To(BeZero())
			})

			It("should include group-derived roles when hydration is requested", func() {
				detail, err := svc.GetUser(ctx, 1, 5, true)

				Expect(err).NotTo(HaveOccurred())
				Expect(detail.GroupRoles).To(HaveLen(1))
				Expect(detail.GroupRoles[0].Name).To(Equal("User"))
			})
		})

		Context("when the user is not linked to the account", func() {
			It("should return not found", func() {
				detail, err := svc.GetUser(ctx, 2, 5, false)

				Expect(detail).To(BeNil())
				Expect(err.(*internal.AppError).Code).To(Equal(internal.ErrCodeUserNotFound))
			})
		})

		Context("when the user does not exist", func() {
			It("should return not found", func() {
				detail, err := svc.GetUser(ctx, 1, 99, false)

				Expect(detail).To(BeNil())
				Expect(err.(*internal.AppError).Code).To(Equal(internal.ErrCodeUserNotFound))
			})
		})
	})
})
