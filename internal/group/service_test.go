package group_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aegis-identity/aegis/internal/core/assignment"
	groupdm "github.com/aegis-identity/aegis/internal/core/datamodel/group"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
	"github.com/aegis-identity/aegis/internal/group"
	"github.com/aegis-identity/aegis/internal/ownership"
)

func TestGroupService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Group Service Suite")
}

// Mock repository for testing
type mockGroupRepository struct {
	groups   map[int64]*groupdm.Group
	members  map[int64][]userdm.User
	assigned map[int64][]roledm.Role

	candidateUserIDs []int64
	candidateRoleIDs []int64

	attachUserCalls [][]int64
	detachUserCalls [][]int64
	attachRoleCalls [][]int64
	detachRoleCalls [][]int64
	deleteCalls     int
}

func newMockGroupRepository() *mockGroupRepository {
	return &mockGroupRepository{
		groups:   make(map[int64]*groupdm.Group),
		members:  make(map[int64][]userdm.User),
		assigned: make(map[int64][]roledm.Role),
	}
}

func (m *mockGroupRepository) Create(_ context.Context, g *groupdm.Group) error {
	g.ID = int64(len(m.groups) + 1)
	m.groups[g.ID] = g
	return nil
}

func (m *mockGroupRepository) Update(_ context.Context, g *groupdm.Group) error {
	m.groups[g.ID] = g
	return nil
}

func (m *mockGroupRepository) Delete(_ context.Context, groupID int64) error {
	m.deleteCalls++
	delete(m.groups, groupID)
	return nil
}

func (m *mockGroupRepository) GetByID(_ context.Context, groupID int64) (*groupdm.Group, error) {
	return m.groups[groupID], nil
}

func (m *mockGroupRepository) GetByName(_ context.Context, accountID int64, name string) (*groupdm.Group, error) {
	for _, g := range m.groups {
		if g.AccountID == accountID && g.Name == name {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGroupRepository) List(_ context.Context, accountID int64, _ query.Spec) ([]groupdm.Group, error) {
	var out []groupdm.Group
	for _, g := range m.groups {
		if g.AccountID == accountID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockGroupRepository) Members(_ context.Context, groupID int64) ([]userdm.User, error) {
	return m.members[groupID], nil
}

func (m *mockGroupRepository) CandidateUserIDs(_ context.Context, _, _ int64, _ []int64) ([]int64, error) {
	return m.candidateUserIDs, nil
}

func (m *mockGroupRepository) AttachUsers(_ context.Context, _ int64, userIDs []int64) error {
	m.attachUserCalls = append(m.attachUserCalls, userIDs)
	return nil
}

func (m *mockGroupRepository) DetachUsers(_ context.Context, _ int64, userIDs []int64) error {
	m.detachUserCalls = append(m.detachUserCalls, userIDs)
	return nil
}

func (m *mockGroupRepository) AssignedRoles(_ context.Context, groupID int64) ([]roledm.Role, error) {
	return m.assigned[groupID], nil
}

func (m *mockGroupRepository) CandidateRoleIDs(_ context.Context, _, _ int64, _ []int64) ([]int64, error) {
	return m.candidateRoleIDs, nil
}

func (m *mockGroupRepository) AttachRoles(_ context.Context, _ int64, roleIDs []int64) error {
	m.attachRoleCalls = append(m.attachRoleCalls, roleIDs)
	return nil
}

func (m *mockGroupRepository) DetachRoles(_ context.Context, _ int64, roleIDs []int64) error {
	m.detachRoleCalls = append(m.detachRoleCalls, roleIDs)
	return nil
}

// Mock ownership service
type mockOwnershipService struct {
	status       ownership.Status
	outside      bool
	outsideCalls int
}

func (m *mockOwnershipService) IsSoleOwner(_ context.Context, _, _ int64) (ownership.Status, error) {
	return m.status, nil
}

func (m *mockOwnershipService) HasOwnershipOutsideGroup(_ context.Context, _, _, _ int64) (bool, error) {
	return m.outside, nil
}

func (m *mockOwnershipService) AnyUserHasOwnershipOutsideGroup(_ context.Context, _ []int64, _, _ int64) (bool, error) {
	m.outsideCalls++
	return m.outside, nil
}

var _ = Describe("GroupService", func() {
	var (
		repo         *mockGroupRepository
		ownershipSvc *mockOwnershipService
		svc          *group.Service
		ctx          context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ownerRole := roledm.Role{ID: 1, AccountID: 1, Name: roledm.SystemRoleOwner, IsSystemDefined: true}

	BeforeEach(func() {
		repo = newMockGroupRepository()
		ownershipSvc = &mockOwnershipService{}
		svc = group.NewService(repo, ownershipSvc, nil, testLogger)
		ctx = context.Background()
	})

	Describe("CreateGroup", func() {
		It("should reject a duplicate name within the account", func() {
			_, err := svc.CreateGroup(ctx, group.CreateGroupDTO{AccountID: 1, Name: "engineering"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.CreateGroup(ctx, group.CreateGroupDTO{AccountID: 1, Name: "engineering"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AddUsersToGroup", func() {
		BeforeEach(func() {
			repo.groups[1] = &groupdm.Group{ID: 1, AccountID: 1, Name: "engineering"}
		})

		Context("when the group does not exist", func() {
			It("should report not found and echo the requested ids", func() {
				res, err := svc.AddUsersToGroup(ctx, 99, []int64{5, 6})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusNotFound))
				Expect(res.Code).To(Equal(assignment.CodeGroupNotFound))
				Expect(res.InvalidIDs).To(Equal([]int64{5, 6}))
				Expect(repo.attachUserCalls).To(BeEmpty())
			})
		})

		Context("when no requested id is addable", func() {
			It("should reject the whole batch without mutation", func() {
				res, err := svc.AddUsersToGroup(ctx, 1, []int64{5, 6})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusAllInvalid))
				Expect(res.Code).To(Equal(assignment.CodeInvalidUserIDs))
				Expect(res.ModifiedCount).To(BeZero())
				Expect(repo.attachUserCalls).To(BeEmpty())
			})
		})

		Context("when some ids are from another account or already members", func() {
			It("should add the valid subset and list the rest as invalid", func() {
				repo.candidateUserIDs = []int64{5}

				res, err := svc.AddUsersToGroup(ctx, 1, []int64{5, 6})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusPartialSuccess))
				Expect(res.ModifiedCount).To(Equal(1))
				Expect(res.InvalidIDs).To(Equal([]int64{6}))
				Expect(repo.attachUserCalls[0]).To(Equal([]int64{5}))
			})
		})

		Context("when every id is addable", func() {
			It("should report full success", func() {
				repo.candidateUserIDs = []int64{5, 6}

				res, err := svc.AddUsersToGroup(ctx, 1, []int64{5, 6})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(res.ModifiedCount).To(Equal(2))
			})
		})
	})

	Describe("RemoveUsersFromGroup", func() {
		BeforeEach(func() {
			repo.groups[1] = &groupdm.Group{ID: 1, AccountID: 1, Name: "admins"}
			repo.members[1] = []userdm.User{{ID: 5}, {ID: 6}}
		})

		Context("when the group carries the owner role and the batch removes everyone", func() {
			BeforeEach(func() {
				repo.assigned[1] = []roledm.Role{ownerRole}
			})

			It("should refuse when no member keeps ownership elsewhere", func() {
				ownershipSvc.outside = false

				res, err := svc.RemoveUsersFromGroup(ctx, 1, []int64{5, 6})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
				Expect(res.Code).To(Equal(assignment.CodeLastOwner))
				Expect(repo.detachUserCalls).To(BeEmpty())
			})

			It("should proceed when a member keeps ownership elsewhere", func() {
				ownershipSvc.outside = true

				res, err := svc.RemoveUsersFromGroup(ctx, 1, []int64{5, 6})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(repo.detachUserCalls).To(HaveLen(1))
			})

			It("should not gate a partial removal that leaves members behind", func() {
				ownershipSvc.outside = false

				res, err := svc.RemoveUsersFromGroup(ctx, 1, []int64{5})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(ownershipSvc.outsideCalls).To(BeZero())
			})
		})

		Context("when nothing requested is a member", func() {
			It("should reject the batch without mutation", func() {
				res, err := svc.RemoveUsersFromGroup(ctx, 1, []int64{42})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusAllInvalid))
				Expect(repo.detachUserCalls).To(BeEmpty())
			})
		})
	})

	Describe("AssignRolesToGroup", func() {
		It("should assign the valid subset and report the rest", func() {
			repo.groups[1] = &groupdm.Group{ID: 1, AccountID: 1, Name: "engineering"}
			repo.candidateRoleIDs = []int64{2}

			res, err := svc.AssignRolesToGroup(ctx, 1, []int64{2, 3})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(assignment.StatusPartialSuccess))
			Expect(res.ModifiedCount).To(Equal(1))
			Expect(res.InvalidIDs).To(Equal([]int64{3}))
		})
	})

	Describe("RemoveRolesFromGroup", func() {
		BeforeEach(func() {
			repo.groups[1] = &groupdm.Group{ID: 1, AccountID: 1, Name: "admins"}
			repo.assigned[1] = []roledm.Role{ownerRole, {ID: 2, AccountID: 1, Name: "auditor"}}
			repo.members[1] = []userdm.User{{ID: 5}}
		})

		Context("when removing the owner role", func() {
			It("should refuse while a member depends on this group for ownership", func() {
				ownershipSvc.outside = false

				res, err := svc.RemoveRolesFromGroup(ctx, 1, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
				Expect(res.Code).To(Equal(assignment.CodeLastOwner))
				Expect(repo.detachRoleCalls).To(BeEmpty())
			})

			It("should proceed when members keep ownership elsewhere", func() {
				ownershipSvc.outside = true

				res, err := svc.RemoveRolesFromGroup(ctx, 1, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
			})

			It("should proceed when the group has no members", func() {
				repo.members[1] = nil
				ownershipSvc.outside = false

				res, err := svc.RemoveRolesFromGroup(ctx, 1, []int64{1})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
			})
		})

		Context("when removing an ordinary role", func() {
			It("should detach without consulting the ownership engine", func() {
				ownershipSvc.outside = false

				res, err := svc.RemoveRolesFromGroup(ctx, 1, []int64{2})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(ownershipSvc.outsideCalls).To(BeZero())
			})
		})
	})

	Describe("DeleteGroup", func() {
		BeforeEach(func() {
			repo.groups[1] = &groupdm.Group{ID: 1, AccountID: 1, Name: "admins"}
		})

		Context("when the group carries the owner role with members", func() {
			BeforeEach(func() {
				repo.assigned[1] = []roledm.Role{ownerRole}
				repo.members[1] = []userdm.User{{ID: 5}}
			})

			It("should refuse when deletion would strip the last owner", func() {
				ownershipSvc.outside = false

				res, err := svc.DeleteGroup(ctx, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSystemViolation))
				Expect(res.Code).To(Equal(assignment.CodeLastOwner))
				Expect(repo.deleteCalls).To(BeZero())
			})

			It("should delete when a member retains ownership elsewhere", func() {
				ownershipSvc.outside = true

				res, err := svc.DeleteGroup(ctx, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(assignment.StatusSuccess))
				Expect(repo.deleteCalls).To(Equal(1))
			})
		})

		It("should delete an ordinary group without consulting ownership", func() {
			res, err := svc.DeleteGroup(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(assignment.StatusSuccess))
			Expect(ownershipSvc.outsideCalls).To(BeZero())
		})
	})
})
