/*
dto.go - Request/response data structures and error mapping

PURPOSE:
  JSON shapes for the HTTP surface, conversion from domain types, and the
  single place where error kinds become HTTP status codes:

    404  missing entities
    403  approval by a non-partner
    401  credential failures
    400  lifecycle/precondition violations (invalid state, duplicate daily
         submission, out of stock, insufficient balance, self-binding)
    500  store failures and everything unexpected

  Point amounts travel as decimal strings, never JSON floats.

SEE ALSO:
  - handlers.go: the only consumer
  - ledger/errors.go: the taxonomy being mapped
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/warp/pairledger/ledger"
)

// =============================================================================
// RESPONSES
// =============================================================================

type AccountDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Balance   string  `json:"balance"`
	PartnerID *string `json:"partner_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	dto := AccountDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.Partner != nil {
		p := string(*a.Partner)
		dto.PartnerID = &p
	}
	return dto
}

type TaskDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Reward        string `json:"reward"`
	Recurrence    string `json:"recurrence"`
	Penalty       string `json:"penalty"`
	NeedsApproval bool   `json:"needs_approval"`
	CreatedAt     string `json:"created_at"`
}

func toTaskDTO(t ledger.Task) TaskDTO {
	return TaskDTO{
		ID:            string(t.ID),
		Title:         t.Title,
		Description:   t.Description,
		Reward:        t.Reward.String(),
		Recurrence:    string(t.Recurrence),
		Penalty:       t.Penalty.String(),
		NeedsApproval: t.NeedsApproval,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
}

type TaskLogDTO struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toTaskLogDTO(l ledger.TaskLog) TaskLogDTO {
	return TaskLogDTO{
		ID:        string(l.ID),
		AccountID: string(l.AccountID),
		TaskID:    string(l.TaskID),
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}

type RewardDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Cost        string `json:"cost"`
	Stock       int    `json:"stock"`
	CreatedAt   string `json:"created_at"`
}

func toRewardDTO(r ledger.Reward) RewardDTO {
	return RewardDTO{
		ID:          string(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Cost:        r.Cost.String(),
		Stock:       r.Stock,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

type RedemptionDTO struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	RewardID     string `json:"reward_id"`
	CostSnapshot string `json:"cost_snapshot"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

func toRedemptionDTO(r ledger.Redemption) RedemptionDTO {
	return RedemptionDTO{
		ID:           string(r.ID),
		AccountID:    string(r.AccountID),
		RewardID:     string(r.RewardID),
		CostSnapshot: r.CostSnapshot.String(),
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

type TransactionDTO struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(tx.ID),
		AccountID:   string(tx.AccountID),
		Amount:      tx.Amount.String(),
		Kind:        string(tx.Kind),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	AccountID   string `json:"account_id"`
}

type SubmitResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	LogID   string `json:"log_id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUESTS
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
}

type CreateAccountRequest struct {
	Name string `json:"name"`
}

type CreateTaskRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Reward        string `json:"reward"`     // decimal string, > 0
	Recurrence    string `json:"recurrence"` // one_time | daily
	Penalty       string `json:"penalty"`
	NeedsApproval bool   `json:"needs_approval"`
}

type CreateRewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        string `json:"cost"` // decimal string, > 0
	Stock       *int   `json:"stock,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a workflow error onto the wire.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ledger.ErrNotPartner):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error(), nil)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
