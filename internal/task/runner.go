package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
)

// Handler executes one task and optionally returns a result payload for
// delivery fan-out.
type Handler func(ctx context.Context, t domain.Task) (json.RawMessage, error)

// Options tunes the runner.
type Options struct {
	Workers        int
	PollInterval   time.Duration
	DefaultRetries int
	// Listeners receive a JSON notification for every completed task.
	Listeners []string
}

// SubmitOptions parameterizes one submission. Lower Priority runs first.
type SubmitOptions struct {
	Priority   int
	Delay      time.Duration
	MaxRetries int
}

// Runner is a generic executor for named, retryable, schedulable units
// of work. Submission is synchronous and never blocks on execution; a
// small fixed worker pool bounds concurrency. Tasks live in a durable
// store, never in the response cache, so a cache restart cannot lose
// queued work.
type Runner struct {
	store    ports.TaskStore
	handlers map[domain.TaskType]Handler
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	slots chan struct{}
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewRunner builds a runner around a durable task store.
func NewRunner(store ports.TaskStore, opts Options, logger *slog.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.DefaultRetries <= 0 {
		opts.DefaultRetries = 3
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		store:    store,
		handlers: map[domain.TaskType]Handler{},
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		slots:    make(chan struct{}, opts.Workers),
	}
}

// Register adds or replaces the handler for a task type.
func (r *Runner) Register(t domain.TaskType, h Handler) {
	r.handlers[t] = h
}

// Submit persists a new task and returns its id. An unknown task type or
// a payload that does not match the type is a configuration error, not a
// soft failure.
func (r *Runner) Submit(ctx context.Context, t domain.TaskType, payload domain.TaskPayload, opts SubmitOptions) (string, error) {
	if _, ok := r.handlers[t]; !ok {
		return "", fmt.Errorf("no handler registered for task type %q", t)
	}
	if err := payload.Validate(t); err != nil {
		return "", err
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = r.opts.DefaultRetries
	}

	now := r.now().UTC()
	task := &domain.Task{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payload,
		Priority:    opts.Priority,
		MaxRetries:  maxRetries,
		Status:      domain.TaskPending,
		CreatedAt:   now,
		ScheduledAt: now.Add(opts.Delay),
		UpdatedAt:   now,
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return "", fmt.Errorf("save task: %w", err)
	}

	r.logger.Debug("task submitted", "task", task.ID, "type", t, "priority", opts.Priority)
	return task.ID, nil
}

// Start launches the polling loop.
func (r *Runner) Start(ctx context.Context) error {
	if r.stop != nil {
		return nil
	}
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.loop(ctx)
	return nil
}

// Stop halts the loop and waits for in-flight tasks to finish.
func (r *Runner) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	close(r.stop)
	r.stop = nil

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.dispatch(ctx)
		}
	}
}

// dispatch claims eligible tasks while worker slots are free. A slot is
// held for the duration of the task, not while polling.
func (r *Runner) dispatch(ctx context.Context) {
	for {
		select {
		case r.slots <- struct{}{}:
		default:
			return
		}

		task, err := r.store.ClaimNext(ctx, r.now().UTC())
		if err != nil {
			<-r.slots
			r.logger.Error("claim next task", "error", err)
			return
		}
		if task == nil {
			<-r.slots
			return
		}

		r.wg.Add(1)
		go func(t *domain.Task) {
			defer r.wg.Done()
			defer func() { <-r.slots }()
			r.execute(ctx, t)
		}(task)
	}
}

// ProcessOne claims and executes at most one eligible task synchronously.
// Used by the CLI one-shot commands and by tests.
func (r *Runner) ProcessOne(ctx context.Context) (bool, error) {
	task, err := r.store.ClaimNext(ctx, r.now().UTC())
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	r.execute(ctx, task)
	return true, nil
}

func (r *Runner) execute(ctx context.Context, t *domain.Task) {
	handler, ok := r.handlers[t.Type]
	if !ok {
		// Stored task with no registered handler: deployment bug, fail
		// hard with no retry.
		t.Status = domain.TaskFailed
		t.LastError = fmt.Sprintf("no handler registered for task type %q", t.Type)
		t.UpdatedAt = r.now().UTC()
		r.updateTask(ctx, t)
		r.logger.Error("unhandled task type", "task", t.ID, "type", t.Type)
		return
	}

	result, err := handler(ctx, *t)
	if err != nil {
		r.handleFailure(ctx, t, err)
		return
	}

	t.Status = domain.TaskDone
	t.LastError = ""
	t.UpdatedAt = r.now().UTC()
	r.updateTask(ctx, t)
	r.logger.Info("task done", "task", t.ID, "type", t.Type, "retries", t.Retries)

	r.fanOut(ctx, t, result)
}

func (r *Runner) handleFailure(ctx context.Context, t *domain.Task, cause error) {
	t.Retries++
	t.LastError = cause.Error()
	t.UpdatedAt = r.now().UTC()

	if t.Retries < t.MaxRetries {
		backoff := time.Duration(1<<uint(t.Retries)) * time.Second
		t.Status = domain.TaskPending
		t.ScheduledAt = r.now().UTC().Add(backoff)
		r.updateTask(ctx, t)
		r.logger.Warn("task retry scheduled",
			"task", t.ID, "type", t.Type, "attempt", t.Retries, "backoff", backoff, "error", cause)
		return
	}

	t.Status = domain.TaskFailed
	r.updateTask(ctx, t)
	r.logger.Error("task failed permanently",
		"task", t.ID, "type", t.Type, "retries", t.Retries, "error", cause)
}

// fanOut enqueues delivery tasks notifying external listeners of a
// completed task. Delivery tasks themselves do not fan out again.
func (r *Runner) fanOut(ctx context.Context, t *domain.Task, result json.RawMessage) {
	if t.Type == domain.TaskDeliver || len(r.opts.Listeners) == 0 {
		return
	}
	if _, ok := r.handlers[domain.TaskDeliver]; !ok {
		return
	}

	body, err := json.Marshal(notification{
		TaskID:    t.ID,
		Type:      string(t.Type),
		Status:    string(t.Status),
		Result:    result,
		Timestamp: r.now().UTC(),
	})
	if err != nil {
		r.logger.Error("marshal notification", "task", t.ID, "error", err)
		return
	}

	for _, listener := range r.opts.Listeners {
		payload := domain.TaskPayload{Deliver: &domain.DeliverPayload{URL: listener, Body: body}}
		if _, err := r.Submit(ctx, domain.TaskDeliver, payload, SubmitOptions{Priority: t.Priority}); err != nil {
			r.logger.Error("enqueue delivery", "task", t.ID, "listener", listener, "error", err)
		}
	}
}

func (r *Runner) updateTask(ctx context.Context, t *domain.Task) {
	if err := r.store.UpdateTask(ctx, t); err != nil {
		r.logger.Error("update task", "task", t.ID, "error", err)
	}
}

// notification is the JSON body POSTed to delivery listeners.
type notification struct {
	TaskID    string          `json:"task_id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
