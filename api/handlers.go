/*
handlers.go - HTTP handlers for the shared incentive ledger

PURPOSE:
  Exposes the workflow engines over REST. Handles request parsing, auth
  context, JSON serialization, and error mapping; all ledger semantics
  live in the engines.

ENDPOINTS:
  Auth:
    POST   /token                             Exchange participant name for a bearer token

  Accounts:
    GET    /api/accounts                      List accounts
    POST   /api/accounts                      Register account
    GET    /api/accounts/me                   Caller's account
    GET    /api/accounts/{id}/transactions    Transaction history
    POST   /api/accounts/partner/{partnerID}  Bind caller to a partner

  Tasks:
    GET    /api/tasks                         Active catalog
    POST   /api/tasks                         Create task
    POST   /api/tasks/{id}/submit             Submit a completion attempt
    GET    /api/tasks/logs                    All attempts, newest first
    POST   /api/tasks/logs/{id}/approve       Partner approves a pending attempt
    POST   /api/tasks/logs/{id}/reject        Reject a pending attempt

  Rewards:
    GET    /api/rewards                       Active catalog
    POST   /api/rewards                       Create reward
    POST   /api/rewards/{id}/redeem           Redeem for the caller
    GET    /api/rewards/redemptions           All claims, newest first
    POST   /api/rewards/redemptions/{id}/fulfill  Mark handed over

REQUEST FLOW:
  1. Resolve caller from the bearer token (middleware)
  2. Parse and validate input
  3. Call the engine (one atomic transaction per call)
  4. Map the result or error onto the wire (dto.go)

SEE ALSO:
  - server.go: router and middleware stack
  - dto.go: wire shapes and error mapping
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/pairledger/accounts"
	"github.com/warp/pairledger/ledger"
	"github.com/warp/pairledger/rewards"
	"github.com/warp/pairledger/tasks"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Accounts *accounts.Manager
	Tasks    *tasks.Engine
	Rewards  *rewards.Engine
	Auth     *TokenIssuer
}

// NewHandler wires the engines onto one store.
func NewHandler(store ledger.TxStore, auth *TokenIssuer) *Handler {
	return &Handler{
		Accounts: accounts.NewManager(store),
		Tasks:    tasks.NewEngine(store),
		Rewards:  rewards.NewEngine(store),
		Auth:     auth,
	}
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges a participant name for a bearer token. Unknown names are
// rejected; the two participants are seeded at startup.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Accounts.GetByName(r.Context(), req.Username)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "User not found", nil)
		return
	}

	token, err := h.Auth.Issue(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		AccountID:   string(account.ID),
	})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AccountDTO, len(list))
	for i, a := range list {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	account, err := h.Accounts.Register(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	account, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	txs, err := h.Accounts.Transactions(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// BindPartner links the caller with the named partner.
func (h *Handler) BindPartner(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	partnerID := ledger.AccountID(chi.URLParam(r, "partnerID"))

	err := h.Accounts.BindPartner(r.Context(), caller, partnerID)
	observeOp("bind_partner", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	partner, err := h.Accounts.Get(r.Context(), partnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Successfully bound with %s", partner.Name),
	})
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TaskDTO, len(list))
	for i, t := range list {
		dtos[i] = toTaskDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	reward, err := parsePoints(req.Reward)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reward amount", err)
		return
	}
	penalty, err := parseOptionalPoints(req.Penalty)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid penalty amount", err)
		return
	}
	recurrence := ledger.TaskOneTime
	if req.Recurrence != "" {
		recurrence, err = ledger.ParseTaskRecurrence(req.Recurrence)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid recurrence", err)
			return
		}
	}

	task, err := h.Tasks.Create(r.Context(), req.Title, req.Description, reward, recurrence, penalty, req.NeedsApproval)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(task))
}

func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	taskID := ledger.TaskID(chi.URLParam(r, "id"))

	log, err := h.Tasks.Submit(r.Context(), caller, taskID)
	observeOp("submit_task", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{
		Message: "Task submitted",
		Status:  string(log.Status),
		LogID:   string(log.ID),
	})
}

func (h *Handler) ListTaskLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Tasks.Logs(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TaskLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toTaskLogDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ApproveTaskLog(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	logID := ledger.TaskLogID(chi.URLParam(r, "id"))

	err := h.Tasks.Approve(r.Context(), logID, caller)
	observeOp("approve_task", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Task approved"})
}

func (h *Handler) RejectTaskLog(w http.ResponseWriter, r *http.Request) {
	logID := ledger.TaskLogID(chi.URLParam(r, "id"))

	err := h.Tasks.Reject(r.Context(), logID)
	observeOp("reject_task", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Task rejected"})
}

// =============================================================================
// REWARD HANDLERS
// =============================================================================

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	list, err := h.Rewards.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]RewardDTO, len(list))
	for i, rw := range list {
		dtos[i] = toRewardDTO(rw)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req CreateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cost, err := parsePoints(req.Cost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cost amount", err)
		return
	}
	stock := ledger.StockUnlimited
	if req.Stock != nil {
		stock = *req.Stock
	}

	reward, err := h.Rewards.Create(r.Context(), req.Title, req.Description, cost, stock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to create reward", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRewardDTO(reward))
}

func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	rewardID := ledger.RewardID(chi.URLParam(r, "id"))

	redemption, err := h.Rewards.Redeem(r.Context(), caller, rewardID)
	observeOp("redeem_reward", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTO(redemption))
}

func (h *Handler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Rewards.Redemptions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]RedemptionDTO, len(list))
	for i, rd := range list {
		dtos[i] = toRedemptionDTO(rd)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) FulfillRedemption(w http.ResponseWriter, r *http.Request) {
	redemptionID := ledger.RedemptionID(chi.URLParam(r, "id"))

	err := h.Rewards.Fulfill(r.Context(), redemptionID)
	observeOp("fulfill_redemption", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Redemption fulfilled"})
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parsePoints(s string) (ledger.Points, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.Points{}, err
	}
	return ledger.Points{Value: d}, nil
}

// parseOptionalPoints treats an empty field as zero.
func parseOptionalPoints(s string) (ledger.Points, error) {
	if s == "" {
		return ledger.NewPointsFromInt(0), nil
	}
	return parsePoints(s)
}
