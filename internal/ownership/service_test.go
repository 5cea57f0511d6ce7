package ownership_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aegis-identity/aegis/internal/ownership"
)

func TestOwnershipService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ownership Service Suite")
}

// Mock repository for testing
type mockOwnershipRepository struct {
	ownerRoleID   int64
	directUsers   map[int64]bool
	groupsByUser  map[int64][]int64
	otherHasOwner bool
}

func newMockOwnershipRepository() *mockOwnershipRepository {
	return &mockOwnershipRepository{
		directUsers:  make(map[int64]bool),
		groupsByUser: make(map[int64][]int64),
	}
}

func (m *mockOwnershipRepository) FindOwnerRoleID(_ context.Context, _ int64) (int64, error) {
	return m.ownerRoleID, nil
}

func (m *mockOwnershipRepository) UserHasRoleDirect(_ context.Context, userID, _ int64) (bool, error) {
	return m.directUsers[userID], nil
}

func (m *mockOwnershipRepository) GroupsGrantingRole(_ context.Context, userID, _ int64) ([]int64, error) {
	return m.groupsByUser[userID], nil
}

func (m *mockOwnershipRepository) OtherAccountMemberHasRole(_ context.Context, _, _, _ int64) (bool, error) {
	return m.otherHasOwner, nil
}

var _ = Describe("OwnershipService", func() {
	var (
		repo *mockOwnershipRepository
		svc  *ownership.Service
		ctx  context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		repo = newMockOwnershipRepository()
		svc = ownership.NewService(repo, testLogger)
		ctx = context.Background()
	})

	Describe("IsSoleOwner", func() {
		Context("when the account has no owner role at all", func() {
			It("should report no ownership with a single source", func() {
				repo.ownerRoleID = 0

				status, err := svc.IsSoleOwner(ctx, 5, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(status.IsSoleOwner).To(BeFalse())
				Expect(status.UserHasOwnerRole).To(BeFalse())
				Expect(status.HasSingleOwnershipSource).To(BeTrue())
			})
		})

		Context("when the user does not hold the owner role", func() {
			It("should report no ownership", func() {
				repo.ownerRoleID = 10

				status, err := svc.IsSoleOwner(ctx, 5, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(status.UserHasOwnerRole).To(BeFalse())
				Expect(status.IsSoleOwner).To(BeFalse())
			})
		})

		Context("when the user owns only through one group", func() {
			It("should report sole ownership from a single source", func() {
				repo.ownerRoleID = 10
				repo.groupsByUser[5] = []int64{3}

				status, err := svc.IsSoleOwner(ctx, 5, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(status.IsSoleOwner).To(BeTrue())
				Expect(status.UserHasOwnerRole).To(BeTrue())
				Expect(status.HasSingleOwnershipSource).To(BeTrue())
			})
		})

		Context("when the user owns both directly and through a group", func() {
			It("should report multiple ownership sources", func() {
				repo.ownerRoleID = 10
				repo.directUsers[5] = true
				repo.groupsByUser[5] = []int64{3}

				status, err := svc.IsSoleOwner(ctx, 5, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(status.IsSoleOwner).To(BeTrue())
				Expect(status.HasSingleOwnershipSource).To(BeFalse())
			})
		})

		Context("when another account member also reaches the owner role", func() {
			It("should not report sole ownership", func() {
				repo.ownerRoleID = 10
				repo.directUsers[5] = true
				repo.otherHasOwner = true

				status, err := svc.IsSoleOwner(ctx, 5, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(status.IsSoleOwner).To(BeFalse())
				Expect(status.UserHasOwnerRole).To(BeTrue())
			})
		})
	})

	Describe("HasOwnershipOutsideGroup", func() {
		BeforeEach(func() {
			repo.ownerRoleID = 10
		})

		It("should be false when the user owns only through the excluded group", func() {
			repo.groupsByUser[5] = []int64{3}

			ok, err := svc.HasOwnershipOutsideGroup(ctx, 5, 1, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should be true when the user owns directly", func() {
			repo.directUsers[5] = true

			ok, err := svc.HasOwnershipOutsideGroup(ctx, 5, 1, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should be true when another group also grants the owner role", func() {
			repo.groupsByUser[5] = []int64{3, 4}

			ok, err := svc.HasOwnershipOutsideGroup(ctx, 5, 1, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should be false when the account has no owner role", func() {
			repo.ownerRoleID = 0

			ok, err := svc.HasOwnershipOutsideGroup(ctx, 5, 1, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("AnyUserHasOwnershipOutsideGroup", func() {
		It("should be true when any user in the set qualifies", func() {
			repo.ownerRoleID = 10
			repo.directUsers[6] = true

			ok, err := svc.AnyUserHasOwnershipOutsideGroup(ctx, []int64{5, 6}, 1, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should be false for an empty set", func() {
			repo.ownerRoleID = 10

			ok, err := svc.AnyUserHasOwnershipOutsideGroup(ctx, nil, 1, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
