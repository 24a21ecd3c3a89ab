package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apidocs "wallet-service/docs/api"
	httpHandler "wallet-service/internal/adapter/http/handler"
	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/adapter/storage/memory"
	redisStorage "wallet-service/internal/adapter/storage/redis"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/service"
	"wallet-service/pkg/logger"
	"wallet-service/pkg/metrics"
	"wallet-service/pkg/response"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp runs the full HTTP stack against the in-memory store, which
// enforces the same per-wallet locking as the PostgreSQL store.
type testApp struct {
	server  *httptest.Server
	metrics *metrics.Metrics
}

type appOption func(*httpHandler.RouterDeps)

func withRateLimit(store ports.RateLimitStore, rules map[string]middleware.RateLimitRule) appOption {
	return func(d *httpHandler.RouterDeps) {
		d.RateLimitStore = store
		d.RateLimitRules = rules
	}
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	store := memory.NewStore(5 * time.Second)
	m := metrics.New()
	log := logger.Nop()
	walletSvc := service.NewWalletService(store, store, nil, domain.DefaultBalance, m, log)

	deps := httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		HealthCheckers: []ports.HealthChecker{store},
		Metrics:        m,
		OpenAPISpec:    apidocs.OpenAPI,
		AppName:        "Wallet Service",
		Logger:         log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	server := httptest.NewServer(httpHandler.SetupRouter(deps))
	t.Cleanup(server.Close)
	return &testApp{server: server, metrics: m}
}

type walletBody struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

func (a *testApp) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (a *testApp) createWallet(t *testing.T, body string) walletBody {
	t.Helper()
	status, data := a.do(t, http.MethodPost, "/api/v1/wallets", body)
	require.Equal(t, http.StatusCreated, status, string(data))
	var w walletBody
	require.NoError(t, json.Unmarshal(data, &w))
	return w
}

func (a *testApp) balance(t *testing.T, id string) int64 {
	t.Helper()
	status, data := a.do(t, http.MethodGet, "/api/v1/wallets/"+id, "")
	require.Equal(t, http.StatusOK, status, string(data))
	var w walletBody
	require.NoError(t, json.Unmarshal(data, &w))
	return w.Balance
}

// operate is safe to call from many goroutines: it reports failures through the return values only.
func (a *testApp) operate(id string, opType domain.OperationType, amount int64) (int, walletBody, error) {
	body := fmt.Sprintf(`{"operation_type":%q,"amount":%d}`, opType, amount)
	resp, err := http.Post(a.server.URL+"/api/v1/wallets/"+id+"/operation", "application/json", bytes.NewBufferString(body))
	if err != nil {
		return 0, walletBody{}, err
	}
	defer resp.Body.Close()
	var w walletBody
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
			return resp.StatusCode, w, err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, w, nil
}

func TestAPI_CreateWithoutBodyUsesDefault(t *testing.T) {
	app := newTestApp(t)

	w := app.createWallet(t, "")
	assert.Equal(t, int64(2000), w.Balance)
	assert.Equal(t, int64(2000), app.balance(t, w.ID))
}

func TestAPI_CreateWithBalance(t *testing.T) {
	app := newTestApp(t)

	w := app.createWallet(t, `{"balance":5000}`)
	assert.Equal(t, int64(5000), w.Balance)
	assert.Equal(t, int64(5000), app.balance(t, w.ID))
}

func TestAPI_CreateNegativeBalanceRejected(t *testing.T) {
	app := newTestApp(t)

	status, data := app.do(t, http.MethodPost, "/api/v1/wallets", `{"balance":-5000}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "VAL_001", resp.ErrorCode)
	assert.NotEmpty(t, resp.RequestID)
}

func TestAPI_DepositScenario(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, "")

	status, got, err := app.operate(w.ID, domain.OperationDeposit, 150)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, int64(2150), got.Balance)
	assert.Equal(t, int64(2150), app.balance(t, w.ID))
}

func TestAPI_OverdrawScenario(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, "")

	status, data := app.do(t, http.MethodPost, "/api/v1/wallets/"+w.ID+"/operation",
		fmt.Sprintf(`{"operation_type":"WITHDRAW","amount":%d}`, w.Balance+150))
	assert.Equal(t, http.StatusBadRequest, status)

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "Not enough balance", resp.Detail)
	assert.Equal(t, w.Balance, app.balance(t, w.ID))
}

func TestAPI_UnknownOperationType(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, "")

	status, _ := app.do(t, http.MethodPost, "/api/v1/wallets/"+w.ID+"/operation", `{"operation_type":"UNKNOWN","amount":150}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, int64(2000), app.balance(t, w.ID))
}

func TestAPI_UnknownWallet(t *testing.T) {
	app := newTestApp(t)

	status, data := app.do(t, http.MethodGet, "/api/v1/wallets/0b3f6b8e-8f5d-4c7a-9d2e-1a2b3c4d5e6f", "")
	assert.Equal(t, http.StatusNotFound, status)

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "Wallet not found", resp.Detail)

	opStatus, _, err := app.operate("0b3f6b8e-8f5d-4c7a-9d2e-1a2b3c4d5e6f", domain.OperationDeposit, 10)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, opStatus)
}

func TestAPI_ReadIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, `{"balance":1234}`)

	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(1234), app.balance(t, w.ID))
	}
}

func TestAPI_WithdrawBoundary(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, `{"balance":500}`)

	status, got, err := app.operate(w.ID, domain.OperationWithdraw, 500)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), got.Balance)

	status, _, err = app.operate(w.ID, domain.OperationWithdraw, 1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, int64(0), app.balance(t, w.ID))
}

func TestAPI_DepositOverflowRejected(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, fmt.Sprintf(`{"balance":%d}`, domain.MaxBalance))

	status, _, err := app.operate(w.ID, domain.OperationDeposit, 1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, domain.MaxBalance, app.balance(t, w.ID))
}

func TestAPI_ConcurrentDeposits(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, `{"balance":0}`)

	const n, amount = 100, int64(10)
	var wg sync.WaitGroup
	var okCount, wrongID atomic.Int64

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, got, err := app.operate(w.ID, domain.OperationDeposit, amount)
			if err != nil || status != http.StatusOK {
				return
			}
			okCount.Add(1)
			if got.ID != w.ID {
				wrongID.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), okCount.Load())
	assert.Zero(t, wrongID.Load())
	assert.Equal(t, n*amount, app.balance(t, w.ID))
}

func TestAPI_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, `{"balance":1000}`)

	// 150 withdrawals of 10 against 1000: exactly 100 can succeed.
	const n, amount = 150, int64(10)
	var wg sync.WaitGroup
	var okCount, rejected, other atomic.Int64

	stop := make(chan struct{})
	var negativeSeen atomic.Bool
	var readerDone sync.WaitGroup
	readerDone.Add(1)
	go func() {
		defer readerDone.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			resp, err := http.Get(app.server.URL + "/api/v1/wallets/" + w.ID)
			if err != nil {
				continue
			}
			var got walletBody
			_ = json.NewDecoder(resp.Body).Decode(&got)
			resp.Body.Close()
			if got.Balance < 0 {
				negativeSeen.Store(true)
			}
		}
	}()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := app.operate(w.ID, domain.OperationWithdraw, amount)
			switch {
			case err != nil:
				other.Add(1)
			case status == http.StatusOK:
				okCount.Add(1)
			case status == http.StatusBadRequest:
				rejected.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()
	close(stop)
	readerDone.Wait()

	assert.Equal(t, int64(100), okCount.Load())
	assert.Equal(t, int64(50), rejected.Load())
	assert.Zero(t, other.Load())
	assert.False(t, negativeSeen.Load(), "a reader observed a negative balance")
	assert.Equal(t, int64(0), app.balance(t, w.ID))
}

func TestAPI_ConcurrentMixedOperations(t *testing.T) {
	app := newTestApp(t)
	w := app.createWallet(t, "")

	const deposits, withdrawals, amount = 60, 40, int64(25)
	var wg sync.WaitGroup
	var failed atomic.Int64

	run := func(opType domain.OperationType) {
		defer wg.Done()
		status, _, err := app.operate(w.ID, opType, amount)
		if err != nil || status != http.StatusOK {
			failed.Add(1)
		}
	}
	for i := 0; i < deposits; i++ {
		wg.Add(1)
		go run(domain.OperationDeposit)
	}
	for i := 0; i < withdrawals; i++ {
		wg.Add(1)
		go run(domain.OperationWithdraw)
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.Equal(t, int64(2000)+deposits*amount-withdrawals*amount, app.balance(t, w.ID))
}

func TestAPI_ConcurrentWalletsAreIndependent(t *testing.T) {
	app := newTestApp(t)
	a := app.createWallet(t, `{"balance":0}`)
	b := app.createWallet(t, `{"balance":0}`)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, id := range []string{a.ID, b.ID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _, _ = app.operate(id, domain.OperationDeposit, 1)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, int64(50), app.balance(t, a.ID))
	assert.Equal(t, int64(50), app.balance(t, b.ID))
}

func TestAPI_ServiceEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, data := app.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Wallet Service","docs":"/swagger","health_check":"/health"}`, string(data))

	status, data = app.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy","dependencies":{"memory":{"status":"healthy"}}}`, string(data))

	status, data = app.do(t, http.MethodGet, "/swagger/spec", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "/api/v1/wallets/{id}/operation")

	app.createWallet(t, "")
	status, data = app.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "wallet_wallets_created_total 1")
	assert.Contains(t, string(data), `wallet_http_requests_total{method="POST",path="/api/v1/wallets",status="201"} 1`)
}

func TestAPI_RequestIDHeader(t *testing.T) {
	app := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/wallets/not-a-uuid", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.HeaderRequestID, "client-req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "client-req-42", resp.Header.Get(middleware.HeaderRequestID))

	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "client-req-42", body.RequestID)
}

func TestAPI_RateLimitedCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rules := map[string]middleware.RateLimitRule{
		middleware.GroupWalletCreate: {Limit: 2, Window: time.Minute},
	}
	app := newTestApp(t, withRateLimit(redisStorage.NewRateLimitStore(rdb), rules))

	app.createWallet(t, "")
	app.createWallet(t, "")

	status, data := app.do(t, http.MethodPost, "/api/v1/wallets", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(data), "RATE_001")

	// Groups without a rule are not limited.
	status, _ = app.do(t, http.MethodGet, "/api/v1/wallets/0b3f6b8e-8f5d-4c7a-9d2e-1a2b3c4d5e6f", "")
	assert.Equal(t, http.StatusNotFound, status)
}
