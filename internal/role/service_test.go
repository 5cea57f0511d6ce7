package role_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aegis-identity/aegis/internal/core/assignment"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/aegis-identity/aegis/internal/ownership"
	"github.com/aegis-identity/aegis/internal/role"
)

func TestRoleService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Role Service Suite")
}

// Mock repository for testing
type mockRoleRepository struct {
	roles       map[int64]*roledm.Role
	usersInAcct map[int64]*userdm.User
	attached    map[int64][]permission.Permission
	assigned    map[int64][]roledm.Role

	candidatePermissionIDs []int64
	candidateRoleIDs       []int64

	attachPermissionCalls [][]int64
	detachPermissionCalls [][]int64
	attachRoleCalls       [][]int64
	detachRoleCalls       [][]int64
	updateCalls           int
	deleteCalls           int
}

func newMockRoleRepository() *mockRoleRepository {
	return &mockRoleRepository{
		roles:       make(map[int64]*roledm.Role),
		usersInAcct: make(map[int64]*userdm.User),
		attached:    make(map[int64][]permission.Permission),
		assigned:    make(map[int64][]roledm.Role),
	}
}

func (m *mockRoleRepository) Create(_ context.Context, r *roledm.Role) error {
	r.ID = int64(len(m.roles) + 1)
	m.roles[r.ID] = r
	return nil
}

func (m *mockRoleRepository) Update(_ context.Context, r *roledm.Role) error {
	m.updateCalls++
	m.roles[r.ID] = r
	return nil
}

func (m *mockRoleRepository) Delete(_ context.Context, roleID int64) error {
	m.deleteCalls++
	delete(m.roles, roleID)
	return nil
}

func (m *mockRoleRepository) GetByID(_ context.Context, roleID int64) (*roledm.Role, error) {
	return m.roles[roleID], nil
}

func (m *mockRoleRepository) GetByName(_ context.Context, accountID int64, name string) (*roledm.Role, error) {
	for _, r := range m.roles {
		if r.AccountID == accountID && r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRoleRepository) List(_ context.Context, accountID int64, _ query.Spec) ([]roledm.Role, error) {
	var out []roledm.Role
	for _, r := range m.roles {
		if r.AccountID == accountID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRoleRepository) AttachedPermissions(_ context.Context, roleID int64) ([]permission.Permission, error) {
	return m.attached[roleID], nil
}

func (m *mockRoleRepository) CandidatePermissionIDs(_ context.Context, _, _ int64, _ []int64) ([]int64, error) {
	return m.candidatePermissionIDs, nil
}

func (m *mockRoleRepository) AttachPermissions(_ context.Context, _ int64, permissionIDs []int64) error {
	m.attachPermissionCalls = append(m.attachPermissionCalls, permissionIDs)
	return nil
}

func (m *mockRoleRepository) DetachPermissions(_ context.Context, _ int64, permissionIDs []int64) error {
	m.detachPermissionCalls = append(m.detachPermissionCalls, permissionIDs)
	return nil
}

func (m *mockRoleRepository) GetUserInAccount(_ context.Context, _, userID int64) (*userdm.User, error) {
	return m.usersInAcct[userID], nil
}

func (m *mockRoleRepository) CandidateRoleIDsForUser(_ context.Context, _, _ int64, _ []int64) ([]int64, error) {
	return m.candidateRoleIDs, nil
}

func (m *mockRoleRepository) AssignedRoles(_ context.Context, userID, _ int64) ([]roledm.Role, error) {
	return m.assigned[userID], nil
}

func (m *mockRoleRepository) AttachRolesToUser(_ context.Context, _ int64, roleIDs []int64) error {
	m.attachRoleCalls = append(m.attachRoleCalls, roleIDs)
	return nil
}

func (m *mockRoleRepository) DetachRolesFromUser(_ context.Context, _ int64, roleIDs []int64) error {
	m.detachRoleCalls = append(m.detachRoleCalls, roleIDs)
	return nil
}

// Mock ownership service
type mockOwnershipService struct {
	status  ownership.Status
	outside bool
}

func (m *mockOwnershipService) IsSoleOwner(_ context.Context, _, _ int64) (ownership.Status, error) {
	return m.status, nil
}

func (m *mockOwnershipService) HasOwnershipOutsideGroup(_ context.Context, _, _, _ int64) (bool, error) {
	return m.outside, nil
}

func (m *mockOwnershipService) AnyUserHasOwnershipOutsideGroup(_ context.Context, _ []int64, _, _ int64) (bool, error) {
	return m.outside, nil
}

var _ = Describe("RoleService", func() {
	var (
		repo         *mockRoleRepository
		ownershipSvc *mockOwnershipService
		svc          *role.Service
		ctx          context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		repo = newMockRoleRepository()
		ownershipSvc = &mockOwnershipService{}
		svc = role.NewService(repo, ownershipSvc, nil, testLogger)
		ctx = context.Background()
	})

	Describe("CreateRole", func() {
		It("should create a role in the account", func() {
			created, err := svc.CreateRole(ctx, role.CreateRoleDTO{AccountID: 1, Name: "auditor"})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeZero())
			Expect(created.IsSystemDefined).To(BeFalse())
		})

		It("should reject a duplicate name within the account", func() {
			_, err := svc.CreateRole(ctx, role.CreateRoleDTO{AccountID: 1, Name: "auditor"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.CreateRole(ctx, role.CreateRoleDTO{AccountID: 1, Name: "auditor"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateRole", func() {
		Context("when the role is system-defined", func() {
			It("should refuse without touching the store", func() {
				repo.roles[7] = &roledm.Role{ID: 7, AccountID: 1, Name: roledm.SystemRoleOwner, IsSystemDefined: true}

				name := "renamed"
				res, err := svc.UpdateRole(ctx, 7, role.UpdateRoleDTO{Name: &name})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
				Expect(res.Code).To(Equal(assignment.CodeSystemDefinedRole))
				Expect(repo.updateCalls).To(BeZero())
			})
		})

		Context("when the role does not exist", func() {
			It("should report not found", func() {
				res, err := svc.UpdateRole(ctx, 99, role.UpdateRoleDTO{})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusNotFound))
				Expect(res.Code).To(Equal(assignment.CodeRoleNotFound))
			})
		})
	})

	Describe("DeleteRole", func() {
		It("should refuse to delete a system-defined role", func() {
			repo.roles[7] = &roledm.Role{ID: 7, AccountID: 1, Name: roledm.SystemRoleAdmin, IsSystemDefined: true}

			res, err := svc.DeleteRole(ctx, 7)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
			Expect(repo.deleteCalls).To(BeZero())
			Expect(repo.roles).To(HaveKey(int64(7)))
		})

		It("should delete a custom role", func() {
			repo.roles[8] = &roledm.Role{ID: 8, AccountID: 1, Name: "auditor"}

			res, err := svc.DeleteRole(ctx, 8)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(assignment.StatusSuccess))
			Expect(repo.deleteCalls).To(Equal(1))
		})
	})

	Describe("AssignPermissionsToRole", func() {
		BeforeEach(func() {
			repo.roles[1] = &roledm.Role{ID: 1, AccountID: 1, Name: "auditor"}
		})

		Context("when the role does not exist", func() {
			It("should report not found and echo the requested ids", func() {
				res, err := svc.AssignPermissionsToRole(ctx, 99, []int64{10, 11})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusNotFound))
				Expect(res.InvalidIDs).To(Equal([]int64{10, 11}))
				Expect(repo.attachPermissionCalls).To(BeEmpty())
			})
		})

		Context("when the request carries no ids", func() {
			It("should reject the empty batch without mutation", func() {
				res, err := svc.AssignPermissionsToRole(ctx, 1, nil)

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusAllInvalid))
				Expect(res.Code).To(Equal(assignment.CodeInvalidPermissionIDs))
				Expect(repo.attachPermissionCalls).To(BeEmpty())
			})
		})

		Context("when no requested id is attachable", func() {
			It("should reject the whole batch without mutation", func() {
				repo.candidatePermissionIDs = nil

				res, err := svc.AssignPermissionsToRole(ctx, 1, []int64{10, 11})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusAllInvalid))
				Expect(res.Code).To(Equal(assignment.CodeInvalidPermissionIDs))
				Expect(res.InvalidIDs).To(Equal([]int64{10, 11}))
				Expect(res.ModifiedCount).To(BeZero())
				Expect(repo.attachPermissionCalls).To(BeEmpty())
			})
		})

		Context("when some ids are from another account", func() {
			It("should attach the valid subset and list the rest as invalid", func() {
				repo.candidatePermissionIDs = []int64{10, 12}

				res, err := svc.AssignPermissionsToRole(ctx, 1, []int64{10, 11, 12})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusPartialSuccess))
				Expect(res.ModifiedCount).To(Equal(2))
				Expect(res.InvalidIDs).To(Equal([]int64{11}))
				Expect(repo.attachPermissionCalls).To(HaveLen(1))
				Expect(repo.attachPermissionCalls[0]).To(Equal([]int64{10, 12}))
			})
		})

		Context("when every id is attachable", func() {
			It("should report full success and dedupe the request", func() {
				repo.candidatePermissionIDs = []int64{10, 11}

				res, err := svc.AssignPermissionsToRole(ctx, 1, []int64{10, 11, 10})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(res.ModifiedCount).To(Equal(2))
				Expect(res.InvalidIDs).To(BeEmpty())
			})
		})
	})

	Describe("RemovePermissionsFromRole", func() {
		Context("on a custom role", func() {
			It("should remove every attached id including system-defined permissions", func() {
				repo.roles[1] = &roledm.Role{ID: 1, AccountID: 1, Name: "auditor"}
				repo.attached[1] = []permission.Permission{
					{ID: 10, IsSystemDefined: true},
					{ID: 11},
				}

				res, err := svc.RemovePermissionsFromRole(ctx, 1, []int64{10, 11})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(res.ModifiedCount).To(Equal(2))
				Expect(res.SystemIDs).To(BeEmpty())
				Expect(repo.detachPermissionCalls).To(HaveLen(1))
				Expect(repo.detachPermissionCalls[0]).To(ConsistOf(int64(10), int64(11)))
			})
		})

		Context("on a system-defined role", func() {
			BeforeEach(func() {
				repo.roles[2] = &roledm.Role{ID: 2, AccountID: 1, Name: roledm.SystemRoleAdmin, IsSystemDefined: true}
				repo.attached[2] = []permission.Permission{
					{ID: 10, IsSystemDefined: true},
					{ID: 11},
				}
			})

			It("should refuse wholesale when every requested id is system-protected", func() {
				res, err := svc.RemovePermissionsFromRole(ctx, 2, []int64{10})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
				Expect(res.Code).To(Equal(assignment.CodeSystemPermissionRemoval))
				Expect(res.SystemIDs).To(Equal([]int64{10}))
				Expect(repo.detachPermissionCalls).To(BeEmpty())
			})

			It("should remove the unprotected subset and report the blocked ids", func() {
				res, err := svc.RemovePermissionsFromRole(ctx, 2, []int64{10, 11})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusPartialSuccess))
				Expect(res.ModifiedCount).To(Equal(1))
				Expect(res.SystemIDs).To(Equal([]int64{10}))
				Expect(repo.detachPermissionCalls).To(HaveLen(1))
				Expect(repo.detachPermissionCalls[0]).To(Equal([]int64{11}))
			})
		})

		Context("when nothing requested is attached", func() {
			It("should reject the batch without mutation", func() {
				repo.roles[1] = &roledm.Role{ID: 1, AccountID: 1, Name: "auditor"}

				res, err := svc.RemovePermissionsFromRole(ctx, 1, []int64{42})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusAllInvalid))
				Expect(repo.detachPermissionCalls).To(BeEmpty())
			})
		})
	})

	Describe("AssignRolesToUser", func() {
		Context("when the user is not in the account", func() {
			It("should report not found", func() {
				res, err := svc.AssignRolesToUser(ctx, 1, 5, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusNotFound))
				Expect(res.Code).To(Equal(assignment.CodeUserNotFound))
				Expect(repo.attachRoleCalls).To(BeEmpty())
			})
		})

		Context("when part of the batch is valid", func() {
			It("should assign the valid subset", func() {
				repo.usersInAcct[5] = &userdm.User{ID: 5}
				repo.candidateRoleIDs = []int64{1}

				res, err := svc.AssignRolesToUser(ctx, 1, 5, []int64{1, 2})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusPartialSuccess))
				Expect(res.ModifiedCount).To(Equal(1))
				Expect(res.InvalidIDs).To(Equal([]int64{2}))
			})
		})
	})

	Describe("RemoveRolesFromUser", func() {
		BeforeEach(func() {
			repo.usersInAcct[5] = &userdm.User{ID: 5}
			repo.assigned[5] = []roledm.Role{
				{ID: 1, AccountID: 1, Name: roledm.SystemRoleOwner, IsSystemDefined: true},
				{ID: 2, AccountID: 1, Name: "auditor"},
			}
		})

		Context("when the user is the account's only owner", func() {
			It("should refuse to remove the owner role", func() {
				ownershipSvc.status = ownership.Status{
					IsSoleOwner:              true,
					UserHasOwnerRole:         true,
					HasSingleOwnershipSource: true,
				}

				res, err := svc.RemoveRolesFromUser(ctx, 1, 5, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
				Expect(res.Code).To(Equal(assignment.CodeLastOwner))
				Expect(repo.detachRoleCalls).To(BeEmpty())
			})
		})

		Context("when another member also owns the account", func() {
			It("should remove the owner role", func() {
				ownershipSvc.status = ownership.Status{
					IsSoleOwner:              false,
					UserHasOwnerRole:         true,
					HasSingleOwnershipSource: true,
				}

				res, err := svc.RemoveRolesFromUser(ctx, 1, 5, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(repo.detachRoleCalls).To(HaveLen(1))
			})
		})

		Context("when the user also reaches ownership through a group", func() {
			It("should allow removing the direct owner assignment", func() {
				ownershipSvc.status = ownership.Status{
					IsSoleOwner:              true,
					UserHasOwnerRole:         true,
					HasSingleOwnershipSource: false,
				}

				res, err := svc.RemoveRolesFromUser(ctx, 1, 5, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
			})
		})

		Context("when removing an ordinary role", func() {
			It("should not consult the ownership engine result", func() {
				res, err := svc.RemoveRolesFromUser(ctx, 1, 5, []int64{2})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(repo.detachRoleCalls[0]).To(Equal([]int64{2}))
			})
		})

		Context("when nothing requested is assigned", func() {
			It("should reject the batch without mutation", func() {
				res, err := svc.RemoveRolesFromUser(ctx, 1, 5, []int64{42})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusAllInvalid))
				Expect(res.Code).To(Equal(assignment.CodeInvalidRoleIDs))
				Expect(repo.detachRoleCalls).To(BeEmpty())
			})
		})
	})
})
