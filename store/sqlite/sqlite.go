/*
Package sqlite provides the SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Durable persistence for accounts, the task and reward catalogs, task
  logs, redemptions, and the append-only transaction history. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The transactions table has no UPDATE and no DELETE statements anywhere in
  this package. Balance corrections happen via new transactions.

KEY TABLES:
  accounts:     The two participants (balance as decimal TEXT)
  tasks:        Task catalog (immutable rows, active flag)
  task_logs:    One row per submission attempt
  rewards:      Reward catalog with stock counters
  redemptions:  Claims with cost snapshots
  transactions: Immutable audit history

ATOMICITY & ISOLATION:
  WithTx opens the SQL transaction with an immediate write lock (_txlock=
  immediate in the DSN), so two mutating transactions never interleave:
  the second blocks until the first commits or rolls back. Combined with
  _busy_timeout this gives the no-interleaving guarantee the workflow
  engines rely on - stock cannot go negative and balances cannot drift
  from the transaction-sum invariant.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging):
  - Readers don't block on the single writer
  - Better crash recovery

STATUS VALIDATION:
  Status and kind strings are parsed into the closed ledger enumerations at
  scan time; a row with an unknown status fails the read instead of
  leaking a free-form string into the engines.

TIMESTAMPS:
  Stored as fixed-width UTC TEXT ("2006-01-02 15:04:05.000000000") so
  lexicographic comparison in SQL matches chronological order. The daily
  dedup query relies on this.

USAGE:
  store, err := sqlite.New("./data/pairledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions and the WithTx contract
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/pairledger/ledger"
)

// timeText is a fixed-width UTC layout; trailing zeros keep string order
// equal to time order.
const timeText = "2006-01-02 15:04:05.000000000"

func fmtTime(t time.Time) string            { return t.UTC().Format(timeText) }
func parseTime(s string) (time.Time, error) { return time.Parse(timeText, s) }

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	queries
}

var _ ledger.TxStore = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database (pinned to one connection so the pool doesn't hand
// out fresh empty databases).
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, queries: queries{db: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL,
		partner_id TEXT REFERENCES accounts(id),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reward TEXT NOT NULL,
		recurrence TEXT NOT NULL,
		penalty TEXT NOT NULL,
		needs_approval INTEGER NOT NULL,
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_logs (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		task_id TEXT NOT NULL REFERENCES tasks(id),
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Daily dedup lookup (hot path on submit)
	CREATE INDEX IF NOT EXISTS idx_task_logs_account_task_created
		ON task_logs(account_id, task_id, created_at);

	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cost TEXT NOT NULL,
		stock INTEGER NOT NULL,
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		CHECK (stock >= -1)
	);

	CREATE TABLE IF NOT EXISTS redemptions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		reward_id TEXT NOT NULL REFERENCES rewards(id),
		cost_snapshot TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Transactions (append-only audit history)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_created
		ON transactions(account_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn inside one SQL transaction. The DSN's _txlock=immediate
// takes the write lock at BEGIN, so two WithTx bodies never interleave.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.StoreError{Op: "begin transaction", Err: err}
	}
	if err := fn(&queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return &ledger.StoreError{Op: "rollback", Err: rbErr}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &ledger.StoreError{Op: "commit", Err: err}
	}
	return nil
}

// =============================================================================
// QUERIES - Shared between the pooled handle and transaction views
// =============================================================================

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query below works
// inside and outside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

var _ ledger.Store = (*queries)(nil)

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (q *queries) CreateAccount(ctx context.Context, a ledger.Account) error {
	var partner any
	if a.Partner != nil {
		partner = string(*a.Partner)
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, balance, partner_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(a.ID), a.Name, a.Balance.String(), partner, fmtTime(a.CreatedAt))
	return err
}

func (q *queries) scanAccount(row *sql.Row) (ledger.Account, error) {
	var (
		id, name, balance, createdAt string
		partner                      sql.NullString
	)
	if err := row.Scan(&id, &name, &balance, &partner, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, ledger.ErrAccountNotFound
		}
		return ledger.Account{}, err
	}
	return buildAccount(id, name, balance, partner, createdAt)
}

func buildAccount(id, name, balance string, partner sql.NullString, createdAt string) (ledger.Account, error) {
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("account %s: bad balance %q: %w", id, balance, err)
	}
	at, err := parseTime(createdAt)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("account %s: bad created_at: %w", id, err)
	}
	a := ledger.Account{
		ID:        ledger.AccountID(id),
		Name:      name,
		Balance:   ledger.Points{Value: bal},
		CreatedAt: at,
	}
	if partner.Valid {
		p := ledger.AccountID(partner.String)
		a.Partner = &p
	}
	return a, nil
}

func (q *queries) Account(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, balance, partner_id, created_at FROM accounts WHERE id = ?`, string(id))
	return q.scanAccount(row)
}

func (q *queries) AccountByName(ctx context.Context, name string) (ledger.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, balance, partner_id, created_at FROM accounts WHERE name = ?`, name)
	return q.scanAccount(row)
}

func (q *queries) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, balance, partner_id, created_at FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var (
			id, name, balance, createdAt string
			partner                      sql.NullString
		)
		if err := rows.Scan(&id, &name, &balance, &partner, &createdAt); err != nil {
			return nil, err
		}
		a, err := buildAccount(id, name, balance, partner, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *queries) SetBalance(ctx context.Context, id ledger.AccountID, balance ledger.Points) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), string(id))
	return oneRow(res, err, ledger.ErrAccountNotFound)
}

func (q *queries) SetPartner(ctx context.Context, id ledger.AccountID, partner *ledger.AccountID) error {
	var p any
	if partner != nil {
		p = string(*partner)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET partner_id = ? WHERE id = ?`, p, string(id))
	return oneRow(res, err, ledger.ErrAccountNotFound)
}

// -----------------------------------------------------------------------------
// Tasks
// -----------------------------------------------------------------------------

func (q *queries) CreateTask(ctx context.Context, t ledger.Task) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, reward, recurrence, penalty, needs_approval, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), t.Title, t.Description, t.Reward.String(), string(t.Recurrence),
		t.Penalty.String(), boolInt(t.NeedsApproval), boolInt(t.Active), fmtTime(t.CreatedAt))
	return err
}

func buildTask(id, title, description, reward, recurrence, penalty string, needsApproval, active int, createdAt string) (ledger.Task, error) {
	rew, err := decimal.NewFromString(reward)
	if err != nil {
		return ledger.Task{}, fmt.Errorf("task %s: bad reward %q: %w", id, reward, err)
	}
	pen, err := decimal.NewFromString(penalty)
	if err != nil {
		return ledger.Task{}, fmt.Errorf("task %s: bad penalty %q: %w", id, penalty, err)
	}
	rec, err := ledger.ParseTaskRecurrence(recurrence)
	if err != nil {
		return ledger.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	at, err := parseTime(createdAt)
	if err != nil {
		return ledger.Task{}, fmt.Errorf("task %s: bad created_at: %w", id, err)
	}
	return ledger.Task{
		ID:            ledger.TaskID(id),
		Title:         title,
		Description:   description,
		Reward:        ledger.Points{Value: rew},
		Recurrence:    rec,
		Penalty:       ledger.Points{Value: pen},
		NeedsApproval: needsApproval != 0,
		Active:        active != 0,
		CreatedAt:     at,
	}, nil
}

const taskColumns = `id, title, description, reward, recurrence, penalty, needs_approval, active, created_at`

func (q *queries) Task(ctx context.Context, id ledger.TaskID) (ledger.Task, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, string(id))
	var (
		tid, title, description, reward, recurrence, penalty, createdAt string
		needsApproval, active                                           int
	)
	if err := row.Scan(&tid, &title, &description, &reward, &recurrence, &penalty, &needsApproval, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Task{}, ledger.ErrTaskNotFound
		}
		return ledger.Task{}, err
	}
	return buildTask(tid, title, description, reward, recurrence, penalty, needsApproval, active, createdAt)
}

func (q *queries) ListActiveTasks(ctx context.Context) ([]ledger.Task, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Task
	for rows.Next() {
		var (
			tid, title, description, reward, recurrence, penalty, createdAt string
			needsApproval, active                                           int
		)
		if err := rows.Scan(&tid, &title, &description, &reward, &recurrence, &penalty, &needsApproval, &active, &createdAt); err != nil {
			return nil, err
		}
		t, err := buildTask(tid, title, description, reward, recurrence, penalty, needsApproval, active, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) DeactivateTask(ctx context.Context, id ledger.TaskID) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET active = 0 WHERE id = ?`, string(id))
	return oneRow(res, err, ledger.ErrTaskNotFound)
}

// -----------------------------------------------------------------------------
// Task logs
// -----------------------------------------------------------------------------

func (q *queries) CreateTaskLog(ctx context.Context, l ledger.TaskLog) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO task_logs (id, account_id, task_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(l.ID), string(l.AccountID), string(l.TaskID), string(l.Status), fmtTime(l.CreatedAt))
	return err
}

func buildTaskLog(id, accountID, taskID, status, createdAt string) (ledger.TaskLog, error) {
	st, err := ledger.ParseTaskLogStatus(status)
	if err != nil {
		return ledger.TaskLog{}, fmt.Errorf("task log %s: %w", id, err)
	}
	at, err := parseTime(createdAt)
	if err != nil {
		return ledger.TaskLog{}, fmt.Errorf("task log %s: bad created_at: %w", id, err)
	}
	return ledger.TaskLog{
		ID:        ledger.TaskLogID(id),
		AccountID: ledger.AccountID(accountID),
		TaskID:    ledger.TaskID(taskID),
		Status:    st,
		CreatedAt: at,
	}, nil
}

func (q *queries) TaskLog(ctx context.Context, id ledger.TaskLogID) (ledger.TaskLog, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, account_id, task_id, status, created_at FROM task_logs WHERE id = ?`, string(id))
	var lid, accountID, taskID, status, createdAt string
	if err := row.Scan(&lid, &accountID, &taskID, &status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.TaskLog{}, ledger.ErrTaskLogNotFound
		}
		return ledger.TaskLog{}, err
	}
	return buildTaskLog(lid, accountID, taskID, status, createdAt)
}

func (q *queries) ListTaskLogs(ctx context.Context) ([]ledger.TaskLog, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, account_id, task_id, status, created_at FROM task_logs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TaskLog
	for rows.Next() {
		var lid, accountID, taskID, status, createdAt string
		if err := rows.Scan(&lid, &accountID, &taskID, &status, &createdAt); err != nil {
			return nil, err
		}
		l, err := buildTaskLog(lid, accountID, taskID, status, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (q *queries) SetTaskLogStatus(ctx context.Context, id ledger.TaskLogID, status ledger.TaskLogStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE task_logs SET status = ? WHERE id = ?`, string(status), string(id))
	return oneRow(res, err, ledger.ErrTaskLogNotFound)
}

func (q *queries) HasTaskLogSince(ctx context.Context, account ledger.AccountID, task ledger.TaskID, cutoff time.Time) (bool, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM task_logs WHERE account_id = ? AND task_id = ? AND created_at >= ?`,
		string(account), string(task), fmtTime(cutoff))
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// -----------------------------------------------------------------------------
// Rewards
// -----------------------------------------------------------------------------

func (q *queries) CreateReward(ctx context.Context, r ledger.Reward) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO rewards (id, title, description, cost, stock, active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), r.Title, r.Description, r.Cost.String(), r.Stock, boolInt(r.Active), fmtTime(r.CreatedAt))
	return err
}

func buildReward(id, title, description, cost string, stock, active int, createdAt string) (ledger.Reward, error) {
	c, err := decimal.NewFromString(cost)
	if err != nil {
		return ledger.Reward{}, fmt.Errorf("reward %s: bad cost %q: %w", id, cost, err)
	}
	at, err := parseTime(createdAt)
	if err != nil {
		return ledger.Reward{}, fmt.Errorf("reward %s: bad created_at: %w", id, err)
	}
	return ledger.Reward{
		ID:          ledger.RewardID(id),
		Title:       title,
		Description: description,
		Cost:        ledger.Points{Value: c},
		Stock:       stock,
		Active:      active != 0,
		CreatedAt:   at,
	}, nil
}

func (q *queries) Reward(ctx context.Context, id ledger.RewardID) (ledger.Reward, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, title, description, cost, stock, active, created_at FROM rewards WHERE id = ?`, string(id))
	var (
		rid, title, description, cost, createdAt string
		stock, active                            int
	)
	if err := row.Scan(&rid, &title, &description, &cost, &stock, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Reward{}, ledger.ErrRewardNotFound
		}
		return ledger.Reward{}, err
	}
	return buildReward(rid, title, description, cost, stock, active, createdAt)
}

func (q *queries) ListActiveRewards(ctx context.Context) ([]ledger.Reward, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, title, description, cost, stock, active, created_at FROM rewards WHERE active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Reward
	for rows.Next() {
		var (
			rid, title, description, cost, createdAt string
			stock, active                            int
		)
		if err := rows.Scan(&rid, &title, &description, &cost, &stock, &active, &createdAt); err != nil {
			return nil, err
		}
		r, err := buildReward(rid, title, description, cost, stock, active, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *queries) SetRewardStock(ctx context.Context, id ledger.RewardID, stock int) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE rewards SET stock = ? WHERE id = ?`, stock, string(id))
	return oneRow(res, err, ledger.ErrRewardNotFound)
}

func (q *queries) DeactivateReward(ctx context.Context, id ledger.RewardID) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE rewards SET active = 0 WHERE id = ?`, string(id))
	return oneRow(res, err, ledger.ErrRewardNotFound)
}

// -----------------------------------------------------------------------------
// Redemptions
// -----------------------------------------------------------------------------

func (q *queries) CreateRedemption(ctx context.Context, r ledger.Redemption) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO redemptions (id, account_id, reward_id, cost_snapshot, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.AccountID), string(r.RewardID), r.CostSnapshot.String(), string(r.Status), fmtTime(r.CreatedAt))
	return err
}

func buildRedemption(id, accountID, rewardID, costSnapshot, status, createdAt string) (ledger.Redemption, error) {
	c, err := decimal.NewFromString(costSnapshot)
	if err != nil {
		return ledger.Redemption{}, fmt.Errorf("redemption %s: bad cost_snapshot %q: %w", id, costSnapshot, err)
	}
	st, err := ledger.ParseRedemptionStatus(status)
	if err != nil {
		return ledger.Redemption{}, fmt.Errorf("redemption %s: %w", id, err)
	}
	at, err := parseTime(createdAt)
	if err != nil {
		return ledger.Redemption{}, fmt.Errorf("redemption %s: bad created_at: %w", id, err)
	}
	return ledger.Redemption{
		ID:           ledger.RedemptionID(id),
		AccountID:    ledger.AccountID(accountID),
		RewardID:     ledger.RewardID(rewardID),
		CostSnapshot: ledger.Points{Value: c},
		Status:       st,
		CreatedAt:    at,
	}, nil
}

func (q *queries) Redemption(ctx context.Context, id ledger.RedemptionID) (ledger.Redemption, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, account_id, reward_id, cost_snapshot, status, created_at FROM redemptions WHERE id = ?`, string(id))
	var rid, accountID, rewardID, costSnapshot, status, createdAt string
	if err := row.Scan(&rid, &accountID, &rewardID, &costSnapshot, &status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Redemption{}, ledger.ErrRedemptionNotFound
		}
		return ledger.Redemption{}, err
	}
	return buildRedemption(rid, accountID, rewardID, costSnapshot, status, createdAt)
}

func (q *queries) ListRedemptions(ctx context.Context) ([]ledger.Redemption, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, account_id, reward_id, cost_snapshot, status, created_at FROM redemptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Redemption
	for rows.Next() {
		var rid, accountID, rewardID, costSnapshot, status, createdAt string
		if err := rows.Scan(&rid, &accountID, &rewardID, &costSnapshot, &status, &createdAt); err != nil {
			return nil, err
		}
		r, err := buildRedemption(rid, accountID, rewardID, costSnapshot, status, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *queries) SetRedemptionStatus(ctx context.Context, id ledger.RedemptionID, status ledger.RedemptionStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE redemptions SET status = ? WHERE id = ?`, string(status), string(id))
	return oneRow(res, err, ledger.ErrRedemptionNotFound)
}

// -----------------------------------------------------------------------------
// Transactions (append-only)
// -----------------------------------------------------------------------------

func (q *queries) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, amount, kind, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(tx.ID), string(tx.AccountID), tx.Amount.String(), string(tx.Kind), tx.Description, fmtTime(tx.CreatedAt))
	return err
}

func (q *queries) Transactions(ctx context.Context, account ledger.AccountID) ([]ledger.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, account_id, amount, kind, description, created_at FROM transactions WHERE account_id = ? ORDER BY created_at`,
		string(account))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var tid, accountID, amount, kind, description, createdAt string
		if err := rows.Scan(&tid, &accountID, &amount, &kind, &description, &createdAt); err != nil {
			return nil, err
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad amount %q: %w", tid, amount, err)
		}
		k, err := ledger.ParseTransactionKind(kind)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tid, err)
		}
		at, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad created_at: %w", tid, err)
		}
		out = append(out, ledger.Transaction{
			ID:          ledger.TransactionID(tid),
			AccountID:   ledger.AccountID(accountID),
			Amount:      ledger.Points{Value: amt},
			Kind:        k,
			Description: description,
			CreatedAt:   at,
		})
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// oneRow converts an UPDATE that matched nothing into the entity's
// not-found sentinel.
func oneRow(res sql.Result, err, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
