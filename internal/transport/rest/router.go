package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/aegis-identity/aegis/internal/auth"
	"github.com/aegis-identity/aegis/internal/group"
	"github.com/aegis-identity/aegis/internal/role"
	"github.com/aegis-identity/aegis/internal/transport/middleware"
	"github.com/aegis-identity/aegis/internal/transport/swagger"
	"github.com/aegis-identity/aegis/internal/user"
	"github.com/go-chi/chi"
)

// RegisterAllRoutes wires the HTTP surface. Everything except sign-in,
// validation, health and docs sits behind the authenticator.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	authService auth.ServiceAPI,
	userHandler *user.Handler,
	roleHandler *role.Handler,
	groupHandler *group.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/token", authHandler.SignIn)
			sr.Post("/validate", authHandler.Validate)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticator(authService))

			pr.Post("/auth/logout", authHandler.Logout)
			pr.Post("/auth/logout-all", authHandler.LogoutAll)

			pr.Route("/users", func(ur chi.Router) {
				ur.Post("/", userHandler.CreateUser)
				ur.Get("/", userHandler.ListUsers)
				ur.Get("/me", userHandler.Me)
				ur.Get("/{id}", userHandler.GetUser)
				ur.Post("/{id}/roles", roleHandler.AssignToUser)
				ur.Delete("/{id}/roles", roleHandler.RemoveFromUser)
			})

			pr.Route("/roles", func(rr chi.Router) {
				rr.Post("/", roleHandler.CreateRole)
				rr.Get("/", roleHandler.ListRoles)
				rr.Get("/{id}", roleHandler.GetRole)
				rr.Patch("/{id}", roleHandler.UpdateRole)
				rr.Delete("/{id}", roleHandler.DeleteRole)
				rr.Post("/{id}/permissions", roleHandler.AssignPermissions)
				rr.Delete("/{id}/permissions", roleHandler.RemovePermissions)
			})

			pr.Route("/groups", func(gr chi.Router) {
				gr.Post("/", groupHandler.CreateGroup)
				gr.Get("/", groupHandler.ListGroups)
				gr.Get("/{id}", groupHandler.GetGroup)
				gr.Patch("/{id}", groupHandler.UpdateGroup)
				gr.Delete("/{id}", groupHandler.DeleteGroup)
				gr.Post("/{id}/users", groupHandler.AddUsers)
				gr.Delete("/{id}/users", groupHandler.RemoveUsers)
				gr.Post("/{id}/roles", groupHandler.AssignRoles)
				gr.Delete("/{id}/roles", groupHandler.RemoveRoles)
			})
		})
	})
}
