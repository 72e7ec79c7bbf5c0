package api

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/taskboard/modules/audit"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/notification"
	"github.com/example/taskboard/modules/task"
)

// Module is the driving adapter: the Fiber HTTP server exposing the board.
type Module struct {
	app           *fiber.App
	addr          string
	authContainer mono.ServiceContainer
	userPort      auth.UserPort
	taskPort      task.TaskPort
	auditPort     audit.AuditPort
	notifications *notification.Module
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new API Module. The notification module is injected
// directly so the /ws endpoint can hand sockets to the board hub.
func NewModule(notifications *notification.Module) *Module {
	addr := os.Getenv("TASKBOARD_HTTP_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	return &Module{
		addr:          addr,
		notifications: notifications,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"auth", "task", "audit"}
}

// SetDependencyServiceContainer receives dependency service containers.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authContainer = container
		m.userPort = auth.NewUserAdapter(container)
	case "task":
		m.taskPort = task.NewTaskAdapter(container)
	case "audit":
		m.auditPort = audit.NewAuditAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.authContainer == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskPort == nil {
		return fmt.Errorf("task dependency not set")
	}
	if m.auditPort == nil {
		return fmt.Errorf("audit dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "taskboard",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:5173"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", m.addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "http server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// setupRoutes configures all API routes.
func (m *Module) setupRoutes() {
	handlers := NewHandlers(m.authContainer, m.userPort, m.taskPort, m.auditPort)

	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	// Live board updates. The hub pushes change frames; clients only listen.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		m.notifications.Hub().Serve(conn)
	}))

	v1 := m.app.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	protected := v1.Group("")
	protected.Use(AuthMiddleware(m.userPort))
	protected.Get("/tasks", handlers.ListTasks)
	protected.Post("/tasks", handlers.CreateTask)
	protected.Get("/tasks/:id", handlers.GetTask)
	protected.Put("/tasks/:id", handlers.UpdateTask)
	protected.Delete("/tasks/:id", handlers.DeleteTask)
	protected.Post("/tasks/:id/smart-assign", handlers.SmartAssign)
	protected.Get("/tasks/:id/actions", handlers.ListTaskActions)
	protected.Get("/actions", handlers.ListActions)
	protected.Get("/users", handlers.ListUsers)
	protected.Get("/users/:id", handlers.GetUser)
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
