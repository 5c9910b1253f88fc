package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/ports"
)

// TaskStore keeps the task queue in the durable relational store rather
// than the response cache: cache eviction must never lose queued work.
type TaskStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.TaskStore = (*TaskStore)(nil)

// NewTaskStore wires a sql.DB with a placeholder dialect.
func NewTaskStore(db *sql.DB, placeholder sq.PlaceholderFormat) *TaskStore {
	return &TaskStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// SaveTask inserts a new task.
func (s *TaskStore) SaveTask(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := s.builder.Insert("tasks").
		Columns("id", "type", "payload", "priority", "retries", "max_retries",
			"status", "last_error", "created_at", "scheduled_at", "updated_at").
		Values(task.ID, string(task.Type), string(payload), task.Priority,
			task.Retries, task.MaxRetries, string(task.Status), task.LastError,
			unixOrZero(task.CreatedAt), unixOrZero(task.ScheduledAt), unixOrZero(task.UpdatedAt))

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

// Task loads one task by id.
func (s *TaskStore) Task(ctx context.Context, id string) (*domain.Task, error) {
	row := s.selectTasks().Where(sq.Eq{"id": id}).RunWith(s.db).QueryRowContext(ctx)
	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return task, nil
}

// ClaimNext picks the next eligible pending task, ordered by priority
// then schedule time, and marks it running. The pending-status guard on
// the update makes the claim safe against a concurrent claimer; on a
// lost race the caller simply polls again.
func (s *TaskStore) ClaimNext(ctx context.Context, now time.Time) (*domain.Task, error) {
	row := s.selectTasks().
		Where(sq.Eq{"status": string(domain.TaskPending)}).
		Where(sq.LtOrEq{"scheduled_at": now.Unix()}).
		OrderBy("priority", "scheduled_at").
		Limit(1).
		RunWith(s.db).QueryRowContext(ctx)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select eligible task: %w", err)
	}

	res, err := s.builder.Update("tasks").
		Set("status", string(domain.TaskRunning)).
		Set("updated_at", now.Unix()).
		Where(sq.Eq{"id": task.ID, "status": string(domain.TaskPending)}).
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim task %s: %w", task.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	task.Status = domain.TaskRunning
	task.UpdatedAt = now.UTC()
	return task, nil
}

// UpdateTask persists the mutable fields of a claimed task.
func (s *TaskStore) UpdateTask(ctx context.Context, task *domain.Task) error {
	query := s.builder.Update("tasks").
		Set("retries", task.Retries).
		Set("status", string(task.Status)).
		Set("last_error", task.LastError).
		Set("scheduled_at", unixOrZero(task.ScheduledAt)).
		Set("updated_at", unixOrZero(task.UpdatedAt)).
		Where(sq.Eq{"id": task.ID})

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	return nil
}

func (s *TaskStore) selectTasks() sq.SelectBuilder {
	return s.builder.Select("id", "type", "payload", "priority", "retries",
		"max_retries", "status", "last_error", "created_at", "scheduled_at",
		"updated_at").From("tasks")
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task                              domain.Task
		taskType, status, payload         string
		createdAt, scheduledAt, updatedAt int64
	)
	err := row.Scan(&task.ID, &taskType, &payload, &task.Priority, &task.Retries,
		&task.MaxRetries, &status, &task.LastError, &createdAt, &scheduledAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &task.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	task.Type = domain.TaskType(taskType)
	task.Status = domain.TaskStatus(status)
	task.CreatedAt = timeOrZero(createdAt)
	task.ScheduledAt = timeOrZero(scheduledAt)
	task.UpdatedAt = timeOrZero(updatedAt)
	return &task, nil
}
