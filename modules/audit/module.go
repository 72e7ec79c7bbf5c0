package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/taskboard/domain/audit"
)

// ErrInvalidAction is returned when a record request carries an unknown action.
var ErrInvalidAction = errors.New("invalid audit action")

// Module provides the append-only action log.
type Module struct {
	db     *gorm.DB
	repo   *Repository
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new audit Module.
func NewModule() *Module {
	dbPath := os.Getenv("TASKBOARD_DB_PATH")
	if dbPath == "" {
		dbPath = "taskboard.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "record", json.Unmarshal, json.Marshal, m.record,
	); err != nil {
		return fmt.Errorf("failed to register record service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.list,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-by-resource", json.Unmarshal, json.Marshal, m.listByResource,
	); err != nil {
		return fmt.Errorf("failed to register list-by-resource service: %w", err)
	}

	log.Printf("[audit] Registered services: record, list, list-by-resource")
	return nil
}

// record handles the record service request.
func (m *Module) record(_ context.Context, req RecordRequest, _ *mono.Msg) (RecordResponse, error) {
	if !req.Action.Valid() {
		return RecordResponse{}, ErrInvalidAction
	}

	details := req.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	// Entries carry the mutation's commit time so per-resource ordering
	// matches commit order; fall back to the wall clock only when the
	// caller has no commit time of its own.
	at := req.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	entry := &domain.Entry{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Action:       req.Action,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Details:      details,
		Timestamp:    at,
	}

	if err := m.repo.Append(entry); err != nil {
		return RecordResponse{}, err
	}

	return RecordResponse{ID: entry.ID, Timestamp: entry.Timestamp}, nil
}

// list handles the list service request.
func (m *Module) list(_ context.Context, req ListRequest, _ *mono.Msg) (ListResponse, error) {
	entries, err := m.repo.List(req.Limit)
	if err != nil {
		return ListResponse{}, err
	}

	resp := ListResponse{
		Entries: make([]EntryResponse, 0, len(entries)),
		Total:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			ID:           e.ID,
			UserID:       e.UserID,
			Action:       e.Action,
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Details:      e.Details,
			Timestamp:    e.Timestamp,
		})
	}
	return resp, nil
}

// listByResource handles the list-by-resource service request. Entries are
// clamped like list; Total carries the full history size for the resource.
func (m *Module) listByResource(_ context.Context, req ListByResourceRequest, _ *mono.Msg) (ListResponse, error) {
	entries, err := m.repo.ListByResource(req.ResourceType, req.ResourceID, req.Limit)
	if err != nil {
		return ListResponse{}, err
	}
	total, err := m.repo.CountByResource(req.ResourceType, req.ResourceID)
	if err != nil {
		return ListResponse{}, err
	}

	resp := ListResponse{
		Entries: make([]EntryResponse, 0, len(entries)),
		Total:   int(total),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			ID:           e.ID,
			UserID:       e.UserID,
			Action:       e.Action,
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Details:      e.Details,
			Timestamp:    e.Timestamp,
		})
	}
	return resp, nil
}

// Start opens the database and runs migrations.
func (m *Module) Start(_ context.Context) error {
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&domain.Entry{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)

	log.Printf("[audit] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[audit] Module stopped")
	return nil
}

// Health performs a health check on the audit module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}
