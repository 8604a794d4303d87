package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pairledger/api"
	"github.com/warp/pairledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	t       *testing.T
	srv     *httptest.Server
	handler *api.Handler
}

// newTestServer boots the full router on a memory store with the two
// participants seeded, mirroring production startup.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := store.NewMemory()
	auth := api.NewTokenIssuer([]byte("test-secret"), time.Hour)
	h := api.NewHandler(s, auth)
	require.NoError(t, h.Accounts.SeedPair(context.Background(), "boy", "girl"))

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, handler: h}
}

// do issues a JSON request, optionally authenticated, and decodes the body
// into out when it is non-nil.
func (ts *testServer) do(method, path, token string, body, out any) *http.Response {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// login exchanges a participant name for a bearer token.
func (ts *testServer) login(name string) string {
	ts.t.Helper()
	var tok api.TokenResponse
	resp := ts.do(http.MethodPost, "/token", "", api.LoginRequest{Username: name}, &tok)
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(ts.t, tok.AccessToken)
	return tok.AccessToken
}

// =============================================================================
// AUTH FLOW
// =============================================================================

func TestLogin_KnownAndUnknownNames(t *testing.T) {
	ts := newTestServer(t)

	var tok api.TokenResponse
	resp := ts.do(http.MethodPost, "/token", "", api.LoginRequest{Username: "boy"}, &tok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccountID)

	resp = ts.do(http.MethodPost, "/token", "", api.LoginRequest{Username: "stranger"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/accounts/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/accounts/me", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_ReturnsCallerAccount(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("boy")

	var me api.AccountDTO
	resp := ts.do(http.MethodGet, "/api/accounts/me", token, nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "boy", me.Name)
	assert.Equal(t, "0", me.Balance)
	require.NotNil(t, me.PartnerID, "seeded participants are paired")
}

// =============================================================================
// TASK WORKFLOW OVER HTTP
// =============================================================================

func TestTaskFlow_SubmitApproveCredit(t *testing.T) {
	// GIVEN: A needs-approval task created over the API
	// WHEN: boy submits and girl approves
	// THEN: boy's balance carries the reward and the log is completed

	ts := newTestServer(t)
	boy := ts.login("boy")
	girl := ts.login("girl")

	var task api.TaskDTO
	resp := ts.do(http.MethodPost, "/api/tasks", boy, api.CreateTaskRequest{
		Title:         "dishes",
		Reward:        "5",
		Recurrence:    "daily",
		NeedsApproval: true,
	}, &task)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submitted api.SubmitResponse
	resp = ts.do(http.MethodPost, "/api/tasks/"+task.ID+"/submit", boy, nil, &submitted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending_approval", submitted.Status)

	// The submitter cannot approve their own attempt.
	resp = ts.do(http.MethodPost, "/api/tasks/logs/"+submitted.LogID+"/approve", boy, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/tasks/logs/"+submitted.LogID+"/approve", girl, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me api.AccountDTO
	ts.do(http.MethodGet, "/api/accounts/me", boy, nil, &me)
	assert.Equal(t, "5", me.Balance)

	var txs []api.TransactionDTO
	resp = ts.do(http.MethodGet, "/api/accounts/"+me.ID+"/transactions", boy, nil, &txs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, txs, 1)
	assert.Equal(t, "task_reward", txs[0].Kind)
}

func TestTaskFlow_DuplicateDailySubmissionRejected(t *testing.T) {
	ts := newTestServer(t)
	boy := ts.login("boy")

	var task api.TaskDTO
	ts.do(http.MethodPost, "/api/tasks", boy, api.CreateTaskRequest{
		Title: "dishes", Reward: "5", Recurrence: "daily",
	}, &task)

	resp := ts.do(http.MethodPost, "/api/tasks/"+task.ID+"/submit", boy, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/tasks/"+task.ID+"/submit", boy, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmit_MissingTaskIs404(t *testing.T) {
	ts := newTestServer(t)
	boy := ts.login("boy")

	resp := ts.do(http.MethodPost, "/api/tasks/nope/submit", boy, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTask_InvalidRewardIs400(t *testing.T) {
	ts := newTestServer(t)
	boy := ts.login("boy")

	resp := ts.do(http.MethodPost, "/api/tasks", boy, api.CreateTaskRequest{
		Title: "freebie", Reward: "not-a-number",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/tasks", boy, api.CreateTaskRequest{
		Title: "freebie", Reward: "0",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// REWARD WORKFLOW OVER HTTP
// =============================================================================

func TestRewardFlow_RedeemAndFulfill(t *testing.T) {
	// Earn 5 points with an auto-approved task, then spend them.

	ts := newTestServer(t)
	boy := ts.login("boy")

	var task api.TaskDTO
	ts.do(http.MethodPost, "/api/tasks", boy, api.CreateTaskRequest{
		Title: "dishes", Reward: "5",
	}, &task)
	resp := ts.do(http.MethodPost, "/api/tasks/"+task.ID+"/submit", boy, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stock := 1
	var reward api.RewardDTO
	resp = ts.do(http.MethodPost, "/api/rewards", boy, api.CreateRewardRequest{
		Title: "movie night", Cost: "5", Stock: &stock,
	}, &reward)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var redemption api.RedemptionDTO
	resp = ts.do(http.MethodPost, "/api/rewards/"+reward.ID+"/redeem", boy, nil, &redemption)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", redemption.Status)
	assert.Equal(t, "5", redemption.CostSnapshot)

	var me api.AccountDTO
	ts.do(http.MethodGet, "/api/accounts/me", boy, nil, &me)
	assert.Equal(t, "0", me.Balance)

	resp = ts.do(http.MethodPost, "/api/rewards/redemptions/"+redemption.ID+"/fulfill", boy, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Sold out now.
	girl := ts.login("girl")
	resp = ts.do(http.MethodPost, "/api/rewards/"+reward.ID+"/redeem", girl, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRedeem_InsufficientBalanceIs400(t *testing.T) {
	ts := newTestServer(t)
	boy := ts.login("boy")

	var reward api.RewardDTO
	ts.do(http.MethodPost, "/api/rewards", boy, api.CreateRewardRequest{
		Title: "movie night", Cost: "5",
	}, &reward)

	var errResp api.ErrorResponse
	resp := ts.do(http.MethodPost, "/api/rewards/"+reward.ID+"/redeem", boy, nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errResp.Error, "insufficient")
}

// =============================================================================
// PAIRING OVER HTTP
// =============================================================================

func TestBindPartner_Route(t *testing.T) {
	ts := newTestServer(t)
	boy := ts.login("boy")

	var created api.AccountDTO
	resp := ts.do(http.MethodPost, "/api/accounts", boy, api.CreateAccountRequest{Name: "newcomer"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var msg api.MessageResponse
	resp = ts.do(http.MethodPost, "/api/accounts/partner/"+created.ID, boy, nil, &msg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, msg.Message, "newcomer")

	var me api.AccountDTO
	ts.do(http.MethodGet, "/api/accounts/me", boy, nil, &me)
	require.NotNil(t, me.PartnerID)
	assert.Equal(t, created.ID, *me.PartnerID)
}
