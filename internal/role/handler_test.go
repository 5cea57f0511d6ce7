package role_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aegis-identity/aegis/internal"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/role"
	rolePostgres "github.com/aegis-identity/aegis/internal/role/postgres"
)

// SQLite-compatible models for the handler round trip
type handlerTestRole struct {
	ID              int64     `gorm:"primaryKey"`
	AccountID       int64     `gorm:"column:account_id;not null"`
	Name            string    `gorm:"column:name;not null"`
	Description     string    `gorm:"column:description"`
	IsSystemDefined bool      `gorm:"column:is_system_defined;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (handlerTestRole) TableName() string { return "roles" }

type handlerTestRolePermission struct {
	ID           int64     `gorm:"primaryKey"`
	RoleID       int64     `gorm:"column:role_id;not null"`
	PermissionID int64     `gorm:"column:permission_id;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (handlerTestRolePermission) TableName() string { return "role_permissions" }

type handlerTestPermission struct {
	ID              int64  `gorm:"primaryKey"`
	AccountID       int64  `gorm:"column:account_id;not null"`
	ResourceType    string `gorm:"column:resource_type;not null"`
	ResourceID      int64  `gorm:"column:resource_id;default:0"`
	Description     string `gorm:"column:description;not null;default:''"`
	CanCreate       bool   `gorm:"column:can_create;default:false"`
	CanRead         bool   `gorm:"column:can_read;default:false"`
	CanUpdate       bool   `gorm:"column:can_update;default:false"`
	CanDelete       bool   `gorm:"column:can_delete;default:false"`
	CanExecute      bool   `gorm:"column:can_execute;default:false"`
	IsSystemDefined bool   `gorm:"column:is_system_defined;default:false"`
}

func (handlerTestPermission) TableName() string { return "permissions" }

type handlerTestUserRole struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null"`
	RoleID    int64     `gorm:"column:role_id;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (handlerTestUserRole) TableName() string { return "user_roles" }

type handlerTestGroupRole struct {
	ID      int64 `gorm:"primaryKey"`
	GroupID int64 `gorm:"column:group_id;not null"`
	RoleID  int64 `gorm:"column:role_id;not null"`
}

func (handlerTestGroupRole) TableName() string { return "group_roles" }

var _ = Describe("Role Handler Integration", func() {
	var (
		db      *gorm.DB
		repo    role.RepositoryAPI
		handler *role.Handler
		router  *chi.Mux
	)

	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	withCaller := func(req *http.Request) *http.Request {
		accountID := int64(1)
		ctx := internal.ContextWithCaller(req.Context(), &internal.Caller{
			UserID:    5,
			AccountID: &accountID,
		})
		return req.WithContext(ctx)
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&handlerTestRole{}, &handlerTestPermission{}, &handlerTestRolePermission{},
			&handlerTestUserRole{}, &handlerTestGroupRole{},
		)
		Expect(err).NotTo(HaveOccurred())

		repo = rolePostgres.NewRepository(db)
		svc := role.NewService(repo, &mockOwnershipService{}, nil, slogger)
		handler = role.NewHandler(svc)

		router = chi.NewRouter()
		router.Post("/roles", handler.CreateRole)
		router.Get("/roles", handler.ListRoles)
		router.Get("/roles/{id}", handler.GetRole)

		Expect(repo.Create(context.Background(), &roledm.Role{
			AccountID: 1, Name: "Owner", IsSystemDefined: true,
		})).To(Succeed())
	})

	It("should create a role and return it as JSON", func() {
		body, err := json.Marshal(role.CreateRoleDTO{
			AccountID:   1,
			Name:        "Auditor",
			Description: "read-only reviewer",
		})
		Expect(err).NotTo(HaveOccurred())

		req := withCaller(httptest.NewRequest(http.MethodPost, "/roles", bytes.NewReader(body)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var created roledm.Role
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.ID).To(BeNumerically(">", 0))
		Expect(created.Name).To(Equal("Auditor"))
	})

	It("should reject a malformed create body", func() {
		req := withCaller(httptest.NewRequest(http.MethodPost, "/roles", bytes.NewReader([]byte("{not json"))))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list the account's roles for an authenticated caller", func() {
		req := withCaller(httptest.NewRequest(http.MethodGet, "/roles", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var roles []roledm.Role
		Expect(json.NewDecoder(w.Body).Decode(&roles)).To(Succeed())
		Expect(roles).To(HaveLen(1))
		Expect(roles[0].Name).To(Equal("Owner"))
	})

	It("should refuse listing without a caller", func() {
		req := httptest.NewRequest(http.MethodGet, "/roles", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should fetch a role with its permissions by id", func() {
		owner, err := repo.GetByName(context.Background(), 1, "Owner")
		Expect(err).NotTo(HaveOccurred())

		Expect(db.Create(&handlerTestPermission{
			ID: 20, AccountID: 1, ResourceType: "*", Description: "full access",
			CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true, CanExecute: true,
			IsSystemDefined: true,
		}).Error).To(Succeed())
		Expect(repo.AttachPermissions(context.Background(), owner.ID, []int64{20})).To(Succeed())

		req := withCaller(httptest.NewRequest(http.MethodGet, "/roles/1", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var hydrated role.RoleWithPermissions
		Expect(json.NewDecoder(w.Body).Decode(&hydrated)).To(Succeed())
		Expect(hydrated.Role.ID).To(Equal(owner.ID))
		Expect(hydrated.Role.IsSystemDefined).To(BeTrue())
		Expect(hydrated.Permissions).To(HaveLen(1))
		Expect(hydrated.Permissions[0].Description).To(Equal("full access"))
		Expect(hydrated.Permissions[0].CanExecute).To(BeTrue())
	})

	It("should reject a non-numeric id", func() {
		req := withCaller(httptest.NewRequest(http.MethodGet, "/roles/abc", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
