package scheduler

// #region imports
import (
	"context"
	"time"
)

// #endregion

// #region task-kind

// TaskKind discriminates the unit of work a task carries. Execution
// strategies are dispatched on this tag by the bound Executor.
type TaskKind string

const (
	KindPlayerTurn  TaskKind = "player_turn"
	KindSummary     TaskKind = "summary"
	KindSuggestions TaskKind = "suggestions"
	KindPortrait    TaskKind = "portrait"
	KindAudio       TaskKind = "audio"
)

// #endregion task-kind

// #region task-status

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusError      TaskStatus = "error"
)

// #endregion task-status

// #region task

// Task describes one unit of asynchronous work. Created by a caller,
// owned by the Scheduler once enqueued, and dropped after exactly one
// terminal callback has fired. Payload carries the kind-specific input.
type Task struct {
	ID          string
	Kind        TaskKind
	Description string
	Priority    int
	Status      TaskStatus

	// Timeout bounds execution of this task. Zero means the scheduler
	// default applies.
	Timeout time.Duration

	Payload any

	// OnSuccess receives the executor's result. OnFallback fires at most
	// once, before either terminal callback, when execution switched to
	// the secondary provider target.
	OnSuccess  func(result any)
	OnError    func(err error)
	OnFallback func()

	seq           uint64
	cancel        context.CancelFunc
	fallbackFired bool
}

// Fallback reports the switch to a secondary target to the task's owner.
// Subsequent calls are no-ops so the callback fires at most once per task.
// Called only from the worker goroutine while the task is in progress.
func (t *Task) Fallback() {
	if t.fallbackFired {
		return
	}
	t.fallbackFired = true
	if t.OnFallback != nil {
		t.OnFallback()
	}
}

// #endregion task

// #region summary

// TaskSummary is the read-only view handed to subscribers.
type TaskSummary struct {
	ID          string
	Description string
	Status      TaskStatus
}

// Subscriber receives the scheduler's aggregate state on every transition.
type Subscriber func(busy bool, tasks []TaskSummary)

// #endregion summary

// #region executor

// Executor runs one task. Implementations dispatch on Task.Kind.
type Executor interface {
	Execute(ctx context.Context, task *Task) (any, error)
}

// #endregion executor

// #region config

// Config tunes the scheduler.
type Config struct {
	// DefaultTimeout bounds tasks that carry no per-task timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{DefaultTimeout: 120 * time.Second}
}

// #endregion config
