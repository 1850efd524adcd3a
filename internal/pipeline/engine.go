package pipeline

// #region imports
import (
	"context"
	"fmt"

	"github.com/catcatAI/story-engine/internal/provider"
	"github.com/catcatAI/story-engine/internal/scheduler"
	"github.com/catcatAI/story-engine/internal/story"
)

// #endregion

// #region priorities

// Task priorities. Player turns outrank every best-effort task, so a turn
// enqueued before a suggestion refresh always completes first.
const (
	PriorityTurn        = 10
	PrioritySummary     = 5
	PriorityPortrait    = 3
	PriorityAudio       = 3
	PrioritySuggestions = 2
)

// #endregion priorities

// #region payloads

// TurnPayload is the input of a player-turn task.
type TurnPayload struct {
	Action    string
	Reference string
	State     story.State
}

// SnapshotPayload is the input of summary and suggestion tasks.
type SnapshotPayload struct {
	State story.State
}

// BriefPayload is the input of portrait and audio tasks.
type BriefPayload struct {
	Subject string
	State   story.State
}

// #endregion payloads

// #region engine

// Engine owns the scheduler and the pipeline and implements the task
// execution strategies, dispatched by kind.
type Engine struct {
	pipe  *Pipeline
	sched *scheduler.Scheduler
}

// NewEngine wires a pipeline to its own scheduler.
func NewEngine(p provider.Client, cfg Config, schedCfg scheduler.Config) *Engine {
	e := &Engine{pipe: New(p, cfg)}
	e.sched = scheduler.New(e, schedCfg)
	return e
}

// Scheduler exposes the owned scheduler for subscriptions and clearing.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}

// Close stops the worker.
func (e *Engine) Close() {
	e.sched.Close()
}

// #endregion engine

// #region execute

// Execute dispatches one task to its strategy. The single switch here is
// the only place task kinds are interpreted.
func (e *Engine) Execute(ctx context.Context, t *scheduler.Task) (any, error) {
	switch t.Kind {
	case scheduler.KindPlayerTurn:
		p, ok := t.Payload.(*TurnPayload)
		if !ok {
			return nil, fmt.Errorf("task %s: bad payload type %T", t.ID, t.Payload)
		}
		return e.pipe.RunTurn(ctx, p.State, p.Action, p.Reference, t.Fallback)

	case scheduler.KindSummary:
		p, ok := t.Payload.(*SnapshotPayload)
		if !ok {
			return nil, fmt.Errorf("task %s: bad payload type %T", t.ID, t.Payload)
		}
		return e.pipe.Summarize(ctx, p.State)

	case scheduler.KindSuggestions:
		p, ok := t.Payload.(*SnapshotPayload)
		if !ok {
			return nil, fmt.Errorf("task %s: bad payload type %T", t.ID, t.Payload)
		}
		return e.pipe.RefreshSuggestions(ctx, p.State), nil

	case scheduler.KindPortrait:
		p, ok := t.Payload.(*BriefPayload)
		if !ok {
			return nil, fmt.Errorf("task %s: bad payload type %T", t.ID, t.Payload)
		}
		return e.pipe.PortraitBrief(ctx, p.State, p.Subject)

	case scheduler.KindAudio:
		p, ok := t.Payload.(*BriefPayload)
		if !ok {
			return nil, fmt.Errorf("task %s: bad payload type %T", t.ID, t.Payload)
		}
		return e.pipe.AudioBrief(ctx, p.State, p.Subject)

	default:
		return nil, fmt.Errorf("task %s: unknown kind %q", t.ID, t.Kind)
	}
}

// #endregion execute

// #region submit

// TurnCallbacks receive the outcome of a submitted turn. OnError implies
// the caller should restore its pre-submission state snapshot.
type TurnCallbacks struct {
	OnSuccess  func(Outcome)
	OnError    func(error)
	OnFallback func()
}

// SubmitTurn enqueues a player-turn task and returns it.
func (e *Engine) SubmitTurn(action string, st story.State, reference string, cb TurnCallbacks) *scheduler.Task {
	t := &scheduler.Task{
		Kind:        scheduler.KindPlayerTurn,
		Description: "player turn: " + truncate(action, 48),
		Priority:    PriorityTurn,
		Payload:     &TurnPayload{Action: action, Reference: reference, State: st},
		OnError:     cb.OnError,
		OnFallback:  cb.OnFallback,
	}
	t.OnSuccess = func(result any) {
		if cb.OnSuccess != nil {
			cb.OnSuccess(result.(Outcome))
		}
	}
	e.sched.Enqueue(t)
	return t
}

// SubmitSummary enqueues a recap task.
func (e *Engine) SubmitSummary(st story.State, onSuccess func(string), onError func(error)) *scheduler.Task {
	t := &scheduler.Task{
		Kind:        scheduler.KindSummary,
		Description: "summarize story log",
		Priority:    PrioritySummary,
		Payload:     &SnapshotPayload{State: st},
		OnError:     onError,
	}
	t.OnSuccess = func(result any) {
		if onSuccess != nil {
			onSuccess(result.(string))
		}
	}
	e.sched.Enqueue(t)
	return t
}

// SubmitSuggestions enqueues a best-effort suggestion refresh.
func (e *Engine) SubmitSuggestions(st story.State, onSuccess func([]string)) *scheduler.Task {
	t := &scheduler.Task{
		Kind:        scheduler.KindSuggestions,
		Description: "refresh suggested actions",
		Priority:    PrioritySuggestions,
		Payload:     &SnapshotPayload{State: st},
	}
	t.OnSuccess = func(result any) {
		if onSuccess != nil {
			onSuccess(result.([]string))
		}
	}
	e.sched.Enqueue(t)
	return t
}

// SubmitPortrait enqueues an image-brief task.
func (e *Engine) SubmitPortrait(st story.State, subject string, onSuccess func(string), onError func(error)) *scheduler.Task {
	t := &scheduler.Task{
		Kind:        scheduler.KindPortrait,
		Description: "portrait brief: " + truncate(subject, 48),
		Priority:    PriorityPortrait,
		Payload:     &BriefPayload{Subject: subject, State: st},
		OnError:     onError,
	}
	t.OnSuccess = func(result any) {
		if onSuccess != nil {
			onSuccess(result.(string))
		}
	}
	e.sched.Enqueue(t)
	return t
}

// SubmitAudio enqueues an ambience-brief task.
func (e *Engine) SubmitAudio(st story.State, scene string, onSuccess func(string), onError func(error)) *scheduler.Task {
	t := &scheduler.Task{
		Kind:        scheduler.KindAudio,
		Description: "audio brief: " + truncate(scene, 48),
		Priority:    PriorityAudio,
		Payload:     &BriefPayload{Subject: scene, State: st},
		OnError:     onError,
	}
	t.OnSuccess = func(result any) {
		if onSuccess != nil {
			onSuccess(result.(string))
		}
	}
	e.sched.Enqueue(t)
	return t
}

// #endregion submit

// #region helpers

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// #endregion helpers
