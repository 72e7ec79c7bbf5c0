package task

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/taskboard/domain/task"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTask(title string) *domain.Task {
	return &domain.Task{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  "a test task",
		Status:       domain.StatusTodo,
		Priority:     domain.PriorityMedium,
		LastEditedBy: "user-1",
	}
}

func TestRepository_Create(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	t.Run("assigns version 1 and timestamps", func(t *testing.T) {
		task := newTask("Write spec")
		if err := repo.Create(task); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if task.Version != 1 {
			t.Errorf("expected version 1, got %d", task.Version)
		}
		if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
			t.Error("expected server-assigned timestamps")
		}

		found, err := repo.FindByID(task.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if found.Title != task.Title {
			t.Errorf("expected title %q, got %q", task.Title, found.Title)
		}
	})

	t.Run("rejects duplicate title", func(t *testing.T) {
		err := repo.Create(newTask("Write spec"))
		var dup *DuplicateTitleError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateTitleError, got %v", err)
		}
		if dup.ColumnLabel {
			t.Error("collision was with a task, not a column label")
		}

		// No partial effect: only the original row exists.
		tasks, err := repo.FindAll()
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(tasks) != 1 {
			t.Errorf("expected 1 task, got %d", len(tasks))
		}
	})

	t.Run("rejects column label as title", func(t *testing.T) {
		for _, title := range []string{"Todo", "In Progress", "Done"} {
			err := repo.Create(newTask(title))
			var dup *DuplicateTitleError
			if !errors.As(err, &dup) {
				t.Fatalf("title %q: expected DuplicateTitleError, got %v", title, err)
			}
			if !dup.ColumnLabel {
				t.Errorf("title %q: expected column label collision", title)
			}
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		if err := repo.Create(newTask("   ")); !errors.Is(err, ErrEmptyTitle) {
			t.Errorf("expected ErrEmptyTitle, got %v", err)
		}
	})
}

func TestRepository_FindByID_NotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.FindByID("non-existent-id")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestRepository_FindAll_NewestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		task := newTask(title)
		if err := repo.Create(task); err != nil {
			t.Fatalf("Create(%q) error = %v", title, err)
		}
		// SQLite timestamps need measurable separation for a stable order.
		time.Sleep(2 * time.Millisecond)
	}

	tasks, err := repo.FindAll()
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i, want := range []string{"third", "second", "first"} {
		if tasks[i].Title != want {
			t.Errorf("position %d: expected %q, got %q", i, want, tasks[i].Title)
		}
	}
}

func TestRepository_ApplyIfVersionMatches(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := newTask("Write spec")
	if err := repo.Create(task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("matching version applies and increments by one", func(t *testing.T) {
		done := domain.StatusDone
		updated, prior, err := repo.ApplyIfVersionMatches(task.ID, 1, domain.Patch{Status: &done}, "user-a")
		if err != nil {
			t.Fatalf("ApplyIfVersionMatches() error = %v", err)
		}
		if prior != domain.StatusTodo {
			t.Errorf("expected prior status Todo, got %q", prior)
		}
		if updated.Version != 2 {
			t.Errorf("expected version 2, got %d", updated.Version)
		}
		if updated.Status != domain.StatusDone {
			t.Errorf("expected status Done, got %q", updated.Status)
		}
		if updated.LastEditedBy != "user-a" {
			t.Errorf("expected lastEditedBy user-a, got %q", updated.LastEditedBy)
		}
	})

	t.Run("stale version is rejected with the server record", func(t *testing.T) {
		high := domain.PriorityHigh
		_, _, err := repo.ApplyIfVersionMatches(task.ID, 1, domain.Patch{Priority: &high}, "user-b")

		var conflict *VersionConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected VersionConflictError, got %v", err)
		}
		if conflict.SubmittedVersion != 1 {
			t.Errorf("expected submitted version 1, got %d", conflict.SubmittedVersion)
		}
		if conflict.Current.Version != 2 {
			t.Errorf("expected server version 2, got %d", conflict.Current.Version)
		}
		if conflict.Current.Status != domain.StatusDone {
			t.Errorf("expected server status Done, got %q", conflict.Current.Status)
		}

		// The stored task is untouched.
		stored, err := repo.FindByID(task.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if stored.Version != 2 || stored.Priority != domain.PriorityMedium {
			t.Errorf("stale write leaked: version=%d priority=%q", stored.Version, stored.Priority)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		title := "whatever"
		_, _, err := repo.ApplyIfVersionMatches("missing", 1, domain.Patch{Title: &title}, "user-a")
		if !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("rename onto an existing title is rejected", func(t *testing.T) {
		other := newTask("Review spec")
		if err := repo.Create(other); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		title := "Write spec"
		_, _, err := repo.ApplyIfVersionMatches(other.ID, 1, domain.Patch{Title: &title}, "user-a")
		var dup *DuplicateTitleError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateTitleError, got %v", err)
		}

		stored, _ := repo.FindByID(other.ID)
		if stored.Version != 1 || stored.Title != "Review spec" {
			t.Errorf("failed rename leaked: version=%d title=%q", stored.Version, stored.Title)
		}
	})

	t.Run("rename to own title is allowed", func(t *testing.T) {
		stored, _ := repo.FindByID(task.ID)
		same := stored.Title
		updated, _, err := repo.ApplyIfVersionMatches(task.ID, stored.Version, domain.Patch{Title: &same}, "user-a")
		if err != nil {
			t.Fatalf("ApplyIfVersionMatches() error = %v", err)
		}
		if updated.Version != stored.Version+1 {
			t.Errorf("expected version %d, got %d", stored.Version+1, updated.Version)
		}
	})

	t.Run("invalid patch values are rejected", func(t *testing.T) {
		bad := domain.Status("Archived")
		if _, _, err := repo.ApplyIfVersionMatches(task.ID, 99, domain.Patch{Status: &bad}, "u"); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
	})

	t.Run("empty patch is rejected", func(t *testing.T) {
		if _, _, err := repo.ApplyIfVersionMatches(task.ID, 99, domain.Patch{}, "u"); !errors.Is(err, ErrEmptyPatch) {
			t.Errorf("expected ErrEmptyPatch, got %v", err)
		}
	})
}

// TestRepository_PriorStatus checks that the CAS reports the status the task
// held before each patch, read under the same lock as the write.
func TestRepository_PriorStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := newTask("two hops")
	if err := repo.Create(task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	inProgress := domain.StatusInProgress
	_, prior, err := repo.ApplyIfVersionMatches(task.ID, 1, domain.Patch{Status: &inProgress}, "u")
	if err != nil {
		t.Fatalf("ApplyIfVersionMatches() error = %v", err)
	}
	if prior != domain.StatusTodo {
		t.Errorf("first move: prior = %q, want Todo", prior)
	}

	done := domain.StatusDone
	_, prior, err = repo.ApplyIfVersionMatches(task.ID, 2, domain.Patch{Status: &done}, "u")
	if err != nil {
		t.Fatalf("ApplyIfVersionMatches() error = %v", err)
	}
	if prior != domain.StatusInProgress {
		t.Errorf("second move: prior = %q, want In Progress", prior)
	}
}

// TestRepository_ConcurrentUpdates drives many writers against one task.
// Each retries on conflict with the fresh server version, so every attempt
// eventually commits exactly once and the final version must be 1+N.
func TestRepository_ConcurrentUpdates(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := newTask("contended")
	if err := repo.Create(task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			desc := uuid.New().String()
			patch := domain.Patch{Description: &desc}

			expected := int64(1)
			for {
				_, _, err := repo.ApplyIfVersionMatches(task.ID, expected, patch, "writer")
				if err == nil {
					return
				}
				var conflict *VersionConflictError
				if errors.As(err, &conflict) {
					expected = conflict.Current.Version
					continue
				}
				errs <- err
				return
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent update failed: %v", err)
	}

	final, err := repo.FindByID(task.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if final.Version != 1+writers {
		t.Errorf("expected version %d after %d mutations, got %d", 1+writers, writers, final.Version)
	}
}

func TestRepository_Assign(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := newTask("needs an owner")
	if err := repo.Create(task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	assigned, err := repo.Assign(task.ID, "user-7", "user-1")
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if assigned.AssignedUser != "user-7" {
		t.Errorf("expected assignee user-7, got %q", assigned.AssignedUser)
	}
	if assigned.Version != 2 {
		t.Errorf("expected version 2, got %d", assigned.Version)
	}
	if assigned.LastEditedBy != "user-1" {
		t.Errorf("expected lastEditedBy user-1, got %q", assigned.LastEditedBy)
	}

	t.Run("unknown id", func(t *testing.T) {
		if _, err := repo.Assign("missing", "user-7", "user-1"); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := newTask("short-lived")
	if err := repo.Create(task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("returns the pre-delete snapshot", func(t *testing.T) {
		deleted, err := repo.Delete(task.ID)
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if deleted.Title != "short-lived" {
			t.Errorf("expected snapshot title, got %q", deleted.Title)
		}
		// UpdatedAt carries the deletion time, stamped under the lock.
		if deleted.UpdatedAt.Before(task.UpdatedAt) {
			t.Errorf("deletion stamp %v predates last edit %v", deleted.UpdatedAt, task.UpdatedAt)
		}

		if _, err := repo.FindByID(task.ID); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected task gone, got %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := repo.Delete(task.ID); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("title is reusable after delete", func(t *testing.T) {
		if err := repo.Create(newTask("short-lived")); err != nil {
			t.Errorf("expected title to be free again, got %v", err)
		}
	})
}

func TestRepository_CountActiveByUser(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	mk := func(title, assignee string, status domain.Status) {
		t.Helper()
		task := newTask(title)
		task.AssignedUser = assignee
		task.Status = status
		if err := repo.Create(task); err != nil {
			t.Fatalf("Create(%q) error = %v", title, err)
		}
	}

	mk("a", "user-1", domain.StatusTodo)
	mk("b", "user-1", domain.StatusInProgress)
	mk("c", "user-1", domain.StatusDone)
	mk("d", "user-2", domain.StatusTodo)
	mk("e", "", domain.StatusTodo)

	count, err := repo.CountActiveByUser("user-1")
	if err != nil {
		t.Fatalf("CountActiveByUser() error = %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 active tasks for user-1, got %d", count)
	}

	count, err = repo.CountActiveByUser("user-3")
	if err != nil {
		t.Fatalf("CountActiveByUser() error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 active tasks for user-3, got %d", count)
	}
}
