package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/auth"
	authpg "github.com/aegis-identity/aegis/internal/auth/postgres"
	"github.com/aegis-identity/aegis/internal/authz"
	authzpg "github.com/aegis-identity/aegis/internal/authz/postgres"
	"github.com/aegis-identity/aegis/internal/core/events"
	"github.com/aegis-identity/aegis/internal/group"
	grouppg "github.com/aegis-identity/aegis/internal/group/postgres"
	"github.com/aegis-identity/aegis/internal/ownership"
	ownershippg "github.com/aegis-identity/aegis/internal/ownership/postgres"
	"github.com/aegis-identity/aegis/internal/role"
	rolepg "github.com/aegis-identity/aegis/internal/role/postgres"
	"github.com/aegis-identity/aegis/internal/transport/rest"
	"github.com/aegis-identity/aegis/internal/user"
	userpg "github.com/aegis-identity/aegis/internal/user/postgres"
	"github.com/aegis-identity/aegis/pkg/logger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting http server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	if err := validateOpenAPISpec("./api/openapi.yml"); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pool: %w", err)
	}

	systemKey, err := config.Security.SystemKeyBytes()
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(lg)
	subscribeAuditLog(bus, lg)

	authzSvc := authz.NewService(authzpg.NewRepository(gdb), lg)
	ownershipSvc := ownership.NewService(ownershippg.NewRepository(gdb), lg)

	authRepo := authpg.NewRepository(gdb)
	keySvc := auth.NewKeyService(authRepo, systemKey)
	authSvc := auth.NewService(authRepo, keySvc, config.Security, bus, lg)

	var roleSvc role.ServiceAPI = role.NewService(rolepg.NewRepository(gdb), ownershipSvc, bus, lg)
	roleSvc = role.NewAuthorizedService(roleSvc, authzSvc)
	roleSvc = role.NewLoggingService(roleSvc, lg)

	var groupSvc group.ServiceAPI = group.NewService(grouppg.NewRepository(gdb), ownershipSvc, bus, lg)
	groupSvc = group.NewAuthorizedService(groupSvc, authzSvc)
	groupSvc = group.NewLoggingService(groupSvc, lg)

	var userSvc user.ServiceAPI = user.NewService(userpg.NewRepository(gdb), keySvc, config.Security.BCryptCost, lg)
	userSvc = user.NewAuthorizedService(userSvc, authzSvc)
	userSvc = user.NewLoggingService(userSvc, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB,
		auth.NewHandler(authSvc), authSvc,
		user.NewHandler(userSvc),
		role.NewHandler(roleSvc),
		group.NewHandler(groupSvc),
		lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// validateOpenAPISpec fails startup when the served contract does not
// parse or validate.
func validateOpenAPISpec(path string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return err
	}
	return doc.Validate(loader.Context)
}

// subscribeAuditLog records privilege and token changes.
func subscribeAuditLog(bus *events.EventBus, lg *slog.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		lg.InfoContext(ctx, "audit event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload(),
		)
		return nil
	}
	bus.Subscribe(events.EventTypeRoleAssignmentChanged, audit)
	bus.Subscribe(events.EventTypeGroupMembershipChanged, audit)
	bus.Subscribe(events.EventTypeTokenIssued, audit)
	bus.Subscribe(events.EventTypeTokenRevoked, audit)
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
