/*
Package tasks implements the task workflow engine.

PURPOSE:
  State machine for a task-completion attempt:

    submit ──────────────────────────────▶ completed   (no approval needed)
    submit ──▶ pending_approval ──┬──────▶ completed   (partner approves)
                                  └──────▶ rejected    (partner rejects)

  The TaskLog status field doubles as the workflow state; the initial state
  is computed from the task's approval flag, not stored separately. A new
  log is created per attempt, never reused.

DAILY DEDUP:
  A daily task may be submitted once per calendar day (local time), not once
  per rolling 24h. The window starts at midnight of the submission day.

PAYOUT:
  Reward credit flows through ledger.ApplyDelta inside the same store
  transaction as the log insert or status write. A log can never exist as
  completed without its matching transaction, and vice versa.

APPROVAL:
  Only the submitter's bound partner may approve a pending log. Rejecting
  an already-rejected log is an accepted no-op; rejecting a completed log
  fails, so a log's status history is always one of {completed},
  {pending_approval, completed}, or {pending_approval, rejected}.

SEE ALSO:
  - ledger/mutator.go: the payout choke point
  - rewards/: the redemption workflow, same transactional shape
*/
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pairledger/ledger"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine drives task submission and approval. Stateless between calls;
// every operation runs inside one store transaction.
type Engine struct {
	store ledger.TxStore
	now   func() time.Time
}

func NewEngine(store ledger.TxStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock overrides the engine's time source. Tests use this to pin the
// daily-dedup window.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit records one completion attempt for the account and returns the
// resulting log. Missing or inactive tasks fail with ErrTaskNotFound; a
// daily task already submitted since local midnight fails with
// ErrDuplicateSubmission. When the task needs no approval the reward is
// credited in the same transaction as the log insert.
func (e *Engine) Submit(ctx context.Context, accountID ledger.AccountID, taskID ledger.TaskID) (ledger.TaskLog, error) {
	var log ledger.TaskLog
	err := e.store.WithTx(ctx, func(s ledger.Store) error {
		task, err := s.Task(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.Active {
			return ledger.ErrTaskNotFound
		}
		if _, err := s.Account(ctx, accountID); err != nil {
			return err
		}

		now := e.now()
		if task.Recurrence == ledger.TaskDaily {
			dayStart := startOfDay(now)
			dup, err := s.HasTaskLogSince(ctx, accountID, taskID, dayStart)
			if err != nil {
				return &ledger.StoreError{Op: "check daily submission", Err: err}
			}
			if dup {
				return ledger.ErrDuplicateSubmission
			}
		}

		status := ledger.LogCompleted
		if task.NeedsApproval {
			status = ledger.LogPendingApproval
		}

		log = ledger.TaskLog{
			ID:        ledger.TaskLogID(uuid.NewString()),
			AccountID: accountID,
			TaskID:    taskID,
			Status:    status,
			CreatedAt: now,
		}
		if err := s.CreateTaskLog(ctx, log); err != nil {
			return &ledger.StoreError{Op: "create task log", Err: err}
		}

		if status == ledger.LogCompleted {
			desc := fmt.Sprintf("Completed task: %s", task.Title)
			if _, err := ledger.ApplyDelta(ctx, s, accountID, task.Reward, ledger.TxTaskReward, desc, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ledger.TaskLog{}, err
	}
	return log, nil
}

// startOfDay truncates to local midnight. Calendar-day window, not a
// rolling 24h.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// APPROVE
// =============================================================================

// Approve transitions a pending log to completed and credits the log's
// owning account (never the approver). The approver must be the
// submitter's bound partner. Status write and payout share one transaction.
func (e *Engine) Approve(ctx context.Context, logID ledger.TaskLogID, approverID ledger.AccountID) error {
	return e.store.WithTx(ctx, func(s ledger.Store) error {
		log, err := s.TaskLog(ctx, logID)
		if err != nil {
			return err
		}
		if log.Status != ledger.LogPendingApproval {
			return &ledger.InvalidStateError{
				Entity:  "task log",
				Current: string(log.Status),
				Wanted:  string(ledger.LogPendingApproval),
			}
		}

		submitter, err := s.Account(ctx, log.AccountID)
		if err != nil {
			return err
		}
		if submitter.Partner == nil || *submitter.Partner != approverID {
			return ledger.ErrNotPartner
		}
		approver, err := s.Account(ctx, approverID)
		if err != nil {
			return err
		}

		if err := s.SetTaskLogStatus(ctx, logID, ledger.LogCompleted); err != nil {
			return &ledger.StoreError{Op: "set task log status", Err: err}
		}

		task, err := s.Task(ctx, log.TaskID)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("Task approved by %s: %s", approver.Name, task.Title)
		_, err = ledger.ApplyDelta(ctx, s, log.AccountID, task.Reward, ledger.TxTaskReward, desc, e.now())
		return err
	})
}

// =============================================================================
// REJECT
// =============================================================================

// Reject transitions a pending log to rejected. No balance effect.
// Rejecting an already-rejected log is a no-op; rejecting a completed log
// fails, since a completed attempt has already paid out.
func (e *Engine) Reject(ctx context.Context, logID ledger.TaskLogID) error {
	return e.store.WithTx(ctx, func(s ledger.Store) error {
		log, err := s.TaskLog(ctx, logID)
		if err != nil {
			return err
		}
		switch log.Status {
		case ledger.LogRejected:
			return nil // idempotent
		case ledger.LogCompleted:
			return &ledger.InvalidStateError{
				Entity:  "task log",
				Current: string(log.Status),
				Wanted:  string(ledger.LogPendingApproval),
			}
		}
		if err := s.SetTaskLogStatus(ctx, logID, ledger.LogRejected); err != nil {
			return &ledger.StoreError{Op: "set task log status", Err: err}
		}
		return nil
	})
}

// =============================================================================
// CATALOG
// =============================================================================

// Create adds a task to the catalog. Tasks are immutable once created and
// are retired via Deactivate, never deleted.
func (e *Engine) Create(ctx context.Context, title, description string, reward ledger.Points, recurrence ledger.TaskRecurrence, penalty ledger.Points, needsApproval bool) (ledger.Task, error) {
	if !reward.IsPositive() {
		return ledger.Task{}, fmt.Errorf("task reward must be positive, got %s", reward)
	}
	task := ledger.Task{
		ID:            ledger.TaskID(uuid.NewString()),
		Title:         title,
		Description:   description,
		Reward:        reward,
		Recurrence:    recurrence,
		Penalty:       penalty,
		NeedsApproval: needsApproval,
		Active:        true,
		CreatedAt:     e.now(),
	}
	if err := e.store.CreateTask(ctx, task); err != nil {
		return ledger.Task{}, &ledger.StoreError{Op: "create task", Err: err}
	}
	return task, nil
}

// List returns the active catalog.
func (e *Engine) List(ctx context.Context) ([]ledger.Task, error) {
	return e.store.ListActiveTasks(ctx)
}

// Logs returns all attempts, newest first.
func (e *Engine) Logs(ctx context.Context) ([]ledger.TaskLog, error) {
	return e.store.ListTaskLogs(ctx)
}

// Deactivate logically removes a task from the catalog.
func (e *Engine) Deactivate(ctx context.Context, id ledger.TaskID) error {
	return e.store.DeactivateTask(ctx, id)
}
