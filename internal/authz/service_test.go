package authz_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/authz"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
)

func TestAuthzService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Authz Service Suite")
}

// Mock permission store for testing
type mockPermissionStore struct {
	perms     []permission.Permission
	loadCalls int
}

func (m *mockPermissionStore) FindPermissionsForUser(_ context.Context, _, _ int64) ([]permission.Permission, error) {
	m.loadCalls++
	return m.perms, nil
}

func callerContext(userID, accountID int64) context.Context {
	return internal.ContextWithCaller(context.Background(), &internal.Caller{
		UserID:    userID,
		AccountID: &accountID,
	})
}

var _ = Describe("AuthzService", func() {
	var (
		store *mockPermissionStore
		svc   *authz.Service
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		store = &mockPermissionStore{}
		svc = authz.NewService(store, testLogger)
	})

	Describe("IsAuthorized", func() {
		Context("without a caller on the context", func() {
			It("should deny without consulting the store", func() {
				ok, err := svc.IsAuthorized(context.Background(), permission.ActionRead, permission.ResourceTypeRole, nil)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(store.loadCalls).To(BeZero())
			})
		})

		Context("with a caller that has no account scope", func() {
			It("should deny", func() {
				ctx := internal.ContextWithCaller(context.Background(), &internal.Caller{UserID: 5})

				ok, err := svc.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeRole, nil)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(store.loadCalls).To(BeZero())
			})
		})

		Context("with a matching instance-scoped permission", func() {
			BeforeEach(func() {
				store.perms = []permission.Permission{
					{AccountID: 1, ResourceType: permission.ResourceTypeRole, ResourceID: 10, CanUpdate: true},
				}
			})

			It("should grant the matching instance", func() {
				id := int64(10)
				ok, err := svc.IsAuthorized(callerContext(5, 1), permission.ActionUpdate, permission.ResourceTypeRole, &id)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			})

			It("should deny a different instance", func() {
				id := int64(11)
				ok, err := svc.IsAuthorized(callerContext(5, 1), permission.ActionUpdate, permission.ResourceTypeRole, &id)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("should deny an action the permission does not carry", func() {
				id := int64(10)
				ok, err := svc.IsAuthorized(callerContext(5, 1), permission.ActionDelete, permission.ResourceTypeRole, &id)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("should deny a caller signed into another account", func() {
				id := int64(10)
				ok, err := svc.IsAuthorized(callerContext(5, 2), permission.ActionUpdate, permission.ResourceTypeRole, &id)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})

		Context("with the account-wide wildcard permission", func() {
			BeforeEach(func() {
				store.perms = []permission.Permission{
					{
						AccountID:    1,
						ResourceType: permission.ResourceTypeAll,
						ResourceID:   permission.AllInstances,
						CanCreate:    true,
						CanRead:      true,
						CanUpdate:    true,
						CanDelete:    true,
						CanExecute:   true,
					},
				}
			})

			It("should grant any action on any resource", func() {
				id := int64(999)
				ok, err := svc.IsAuthorized(callerContext(5, 1), permission.ActionDelete, permission.ResourceTypeGroup, &id)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			})
		})

		Context("with a type-wide permission", func() {
			It("should grant every instance of the type", func() {
				store.perms = []permission.Permission{
					{AccountID: 1, ResourceType: permission.ResourceTypeUser, ResourceID: permission.AllInstances, CanRead: true},
				}

				id := int64(42)
				ok, err := svc.IsAuthorized(callerContext(5, 1), permission.ActionRead, permission.ResourceTypeUser, &id)

				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			})
		})
	})

	Describe("IsAuthorizedAll", func() {
		BeforeEach(func() {
			store.perms = []permission.Permission{
				{AccountID: 1, ResourceType: permission.ResourceTypeRole, ResourceID: 10, CanRead: true},
				{AccountID: 1, ResourceType: permission.ResourceTypeRole, ResourceID: 11, CanRead: true},
			}
		})

		It("should grant only when every id in the batch is covered", func() {
			ok, err := svc.IsAuthorizedAll(callerContext(5, 1), permission.ActionRead, permission.ResourceTypeRole, []int64{10, 11})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should deny the whole batch when one id is uncovered", func() {
			ok, err := svc.IsAuthorizedAll(callerContext(5, 1), permission.ActionRead, permission.ResourceTypeRole, []int64{10, 12})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should fall back to the type-level check for an empty batch", func() {
			ok, err := svc.IsAuthorizedAll(callerContext(5, 1), permission.ActionRead, permission.ResourceTypeRole, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("IsAuthorizedForOwnUser", func() {
		It("should be true only for the caller's own identity", func() {
			ctx := callerContext(5, 1)

			Expect(svc.IsAuthorizedForOwnUser(ctx, 5)).To(BeTrue())
			Expect(svc.IsAuthorizedForOwnUser(ctx, 6)).To(BeFalse())
			Expect(svc.IsAuthorizedForOwnUser(context.Background(), 5)).To(BeFalse())
		})
	})

	Describe("request-scoped caching", func() {
		It("should hit the store once per request context", func() {
			ctx := authz.WithCache(callerContext(5, 1))

			for i := 0; i < 4; i++ {
				_, err := svc.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeRole, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(store.loadCalls).To(Equal(1))
		})

		It("should hit the store per check without a cache installed", func() {
			ctx := callerContext(5, 1)

			for i := 0; i < 3; i++ {
				_, err := svc.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeRole, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(store.loadCalls).To(Equal(3))
		})
	})
})
