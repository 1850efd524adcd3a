package scheduler

// #region imports
import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// #endregion

// #region scheduler-struct

// Scheduler owns a priority-ordered task queue drained by a single worker.
// Enqueue is safe from any goroutine; execution is strictly serialized, so
// at most one task is in progress at any instant.
type Scheduler struct {
	mu      sync.Mutex
	queue   []*Task
	running *Task
	seq     uint64
	subs    map[int]Subscriber
	nextSub int
	closed  bool

	wake chan struct{}
	done chan struct{}
	idle sync.WaitGroup

	exec Executor
	cfg  Config
}

// #endregion scheduler-struct

// #region constructor

// New starts a scheduler with its worker goroutine. Close releases it.
func New(exec Executor, cfg Config) *Scheduler {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	s := &Scheduler{
		subs: make(map[int]Subscriber),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		exec: exec,
		cfg:  cfg,
	}
	s.idle.Add(1)
	go s.worker()
	return s
}

// Close stops the worker after the task currently in progress settles.
// Queued tasks are dropped without their callbacks, as with Clear.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
	s.mu.Unlock()
	s.idle.Wait()
}

// #endregion constructor

// #region enqueue

// Enqueue appends one or more tasks and wakes the worker. Non-blocking.
// Tasks without an ID are assigned one.
func (s *Scheduler) Enqueue(tasks ...*Task) {
	if len(tasks) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		t.Status = StatusQueued
		t.seq = s.seq
		s.seq++
		s.queue = append(s.queue, t)
	}
	s.mu.Unlock()

	s.notify()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// #endregion enqueue

// #region clear

// Clear discards every not-yet-started task. In-flight work is not
// interrupted and discarded tasks' callbacks are never invoked: clearing
// models an intentional session reset, not a per-task failure.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	n := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	if n > 0 {
		log.Printf("[SCHED] cleared %d queued task(s)", n)
	}
	s.notify()
}

// #endregion clear

// #region subscribe

// Subscribe registers a listener for state transitions and returns its
// unsubscribe function.
func (s *Scheduler) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify snapshots state under the lock and invokes subscribers outside it.
func (s *Scheduler) notify() {
	s.mu.Lock()
	busy := s.running != nil
	tasks := make([]TaskSummary, 0, len(s.queue)+1)
	if s.running != nil {
		tasks = append(tasks, summarize(s.running))
	}
	for _, t := range s.queue {
		tasks = append(tasks, summarize(t))
	}
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(busy, tasks)
	}
}

func summarize(t *Task) TaskSummary {
	return TaskSummary{ID: t.ID, Description: t.Description, Status: t.Status}
}

// #endregion subscribe

// #region worker

func (s *Scheduler) worker() {
	defer s.idle.Done()
	for {
		t := s.dequeue()
		if t == nil {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		s.notify()
		result, err := s.runTask(t)

		s.mu.Lock()
		s.running = nil
		s.mu.Unlock()

		if err != nil {
			t.Status = StatusError
			log.Printf("[SCHED] task %s (%s) failed: %v", t.ID, t.Kind, err)
			if t.OnError != nil {
				t.OnError(err)
			}
		} else {
			t.Status = StatusDone
			if t.OnSuccess != nil {
				t.OnSuccess(result)
			}
		}
		s.notify()
	}
}

// dequeue pops the highest-priority task, ties broken by insertion order.
func (s *Scheduler) dequeue() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	best := 0
	for i, t := range s.queue {
		b := s.queue[best]
		if t.Priority > b.Priority || (t.Priority == b.Priority && t.seq < b.seq) {
			best = i
		}
	}
	t := s.queue[best]
	s.queue = append(s.queue[:best], s.queue[best+1:]...)
	t.Status = StatusInProgress
	s.running = t
	return t
}

// runTask executes one task under its timeout, converting a panic in the
// execution strategy into an error so the worker loop survives.
func (s *Scheduler) runTask(t *Task) (result any, err error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.mu.Lock()
	t.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		t.cancel = nil
		s.mu.Unlock()
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.ID, r)
		}
	}()

	return s.exec.Execute(ctx, t)
}

// Cancel requests cooperative cancellation of the task if it is currently
// in progress. Queued tasks are untouched; use Clear for those.
func (s *Scheduler) Cancel(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil && s.running.ID == taskID && s.running.cancel != nil {
		s.running.cancel()
	}
}

// #endregion worker
