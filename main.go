package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/taskboard/modules/api"
	"github.com/example/taskboard/modules/audit"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/notification"
	"github.com/example/taskboard/modules/task"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Taskboard - Collaborative Task Tracking Service ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	notifications := notification.NewModule()

	// Order: independent modules first, then modules with dependencies.
	app.Register(audit.NewModule())    // Append-only action log (no dependencies)
	app.Register(notifications)        // Event consumer (subscribes to task events)
	app.Register(auth.NewModule())     // Identity provider + user directory (depends on audit)
	app.Register(task.NewModule())     // Mutation core (depends on auth, audit; emits events)
	app.Register(api.NewModule(notifications)) // Driving adapter (HTTP + websocket)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("REST API Endpoints (http://localhost:3000):")
	log.Println("  POST   /api/v1/auth/register          - Create an account")
	log.Println("  POST   /api/v1/auth/login             - Log in")
	log.Println("  POST   /api/v1/auth/refresh           - Refresh tokens")
	log.Println("  GET    /api/v1/tasks                  - List all tasks")
	log.Println("  POST   /api/v1/tasks                  - Create a task")
	log.Println("  GET    /api/v1/tasks/:id              - Get a task")
	log.Println("  PUT    /api/v1/tasks/:id              - Update a task (version-guarded)")
	log.Println("  DELETE /api/v1/tasks/:id              - Delete a task")
	log.Println("  POST   /api/v1/tasks/:id/smart-assign - Assign to least loaded user")
	log.Println("  GET    /api/v1/tasks/:id/actions      - Action history for one task")
	log.Println("  GET    /api/v1/actions?limit=N        - Recent action log")
	log.Println("  GET    /api/v1/users                  - User directory")
	log.Println("  GET    /api/v1/users/:id              - One directory entry")
	log.Println("  GET    /ws                            - Live board updates (websocket)")
	log.Println("  GET    /health                        - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
