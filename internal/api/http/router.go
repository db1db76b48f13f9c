package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	Hub            *realtime.Hub
	AuthMiddleware *auth.AuthMiddleware
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAuth(), cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAuth(), cfg.Auth.Me)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	users.Get("/me", cfg.Users.Me)
	users.Get("/", cfg.Users.List)

	elevated := auth.RequireRole(domain.RoleManager, domain.RoleAdmin)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	tasks.Post("/", elevated, cfg.Tasks.Create)
	tasks.Get("/", cfg.Tasks.List)
	tasks.Get("/stats", cfg.Tasks.Stats)
	tasks.Get("/my-tasks", cfg.Tasks.MyTasks)

	tasks.Get("/user", elevated, cfg.Tasks.UsersWithTasks)
	tasks.Get("/user/:userId", elevated, cfg.Tasks.TasksByUser)
	tasks.Delete("/bulk/:ids", elevated, cfg.Tasks.BulkDelete)

	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Patch("/:id", cfg.Tasks.Update)
	tasks.Patch("/:id/assign", elevated, cfg.Tasks.Assign)
	tasks.Delete("/:id", cfg.Tasks.Delete)

	ws := app.Group("/ws", realtime.UpgradeGuard())
	ws.Get("/notifications", realtime.Handler(cfg.Hub, cfg.Logger))
}
