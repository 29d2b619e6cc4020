package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicent00/swap-facade/internal/cache"
	"github.com/vicent00/swap-facade/internal/controls"
	"github.com/vicent00/swap-facade/internal/facade"
	"github.com/vicent00/swap-facade/internal/ledger"
	"github.com/vicent00/swap-facade/internal/models"
	"github.com/vicent00/swap-facade/internal/router"
	"github.com/vicent00/swap-facade/internal/server"
)

const (
	testAPIAddr = ":8092"
	testBaseURL = "http://localhost:8092"
	testAPIKey  = "test-api-key-integration"

	tokenIn   = "TOKA"
	tokenOut  = "TOKB"
	trader    = "alice"
	reserve   = int64(1_000_000_000)
	traderBal = int64(100_000_000)
)

func setupIntegrationTest(t *testing.T) (*ledger.MemoryLedger, func()) {
	// Check if Redis is available
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	// Clear test DB
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	// In-memory ledger with a funded pool and trader
	l := ledger.NewMemoryLedger()
	l.Mint(tokenIn, "pool", big.NewInt(reserve))
	l.Mint(tokenOut, "pool", big.NewInt(reserve))
	l.Mint(tokenIn, trader, big.NewInt(traderBal))
	require.NoError(t, l.Approve(context.Background(), tokenIn, trader, "facade", big.NewInt(traderBal)))

	amm := router.NewAMM(l, "router", logger)
	require.NoError(t, amm.AddPool(router.Pool{
		TokenA:  tokenIn,
		TokenB:  tokenOut,
		Fee:     router.FeeTier3000,
		Account: "pool",
	}))

	swapCache := cache.NewRedisCacheFromClient(redisClient, logger)
	switchStore, err := controls.NewStore(redisClient)
	require.NoError(t, err)

	sink := cache.NewFanoutSink(swapCache, nil, logger)

	f, err := facade.New(facade.PairConfig{
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		Fee:           router.FeeTier3000,
		Account:       "facade",
		RouterAccount: "router",
	}, l, amm, facade.WithEventSink(sink), facade.WithLogger(logger))
	require.NoError(t, err)

	handlers := &server.Handlers{
		Facade:   f,
		Quoter:   amm,
		Ledger:   l,
		Cache:    swapCache,
		Controls: switchStore,
		DevMode:  true,
		Logger:   logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:    testAPIAddr,
			DevMode: true,
			APIKey:  testAPIKey,
		},
	})
	require.NoError(t, err)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("Server error: %v", err)
		}
	}()

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return l, cleanup
}

func makeRequest(t *testing.T, method, url string, body interface{}, expectedStatus int) *http.Response {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "Expected status %d, got %d", expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_Health(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var response server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.True(t, response.OK)
	assert.Equal(t, "TOKA/TOKB", response.Pair)
}

func TestIntegration_SwapLifecycle(t *testing.T) {
	l, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Quote first, then execute with the same amount.
	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/quote?direction=exact_input&amount=1000000", nil, http.StatusOK)
	var quote server.QuoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quote))
	resp.Body.Close()

	swapPayload := map[string]interface{}{
		"caller":    trader,
		"amount_in": "1000000",
	}
	resp = makeRequest(t, http.MethodPost, testBaseURL+"/v1/swaps/exact-input", swapPayload, http.StatusOK)
	var swap server.SwapResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	resp.Body.Close()

	assert.Equal(t, quote.Quoted, swap.AmountOut, "execution should match the quote")

	// The output token landed in the trader's account.
	bal, err := l.BalanceOf(context.Background(), tokenOut, trader)
	require.NoError(t, err)
	assert.Equal(t, swap.AmountOut, bal.String())

	// The settled swap shows up in the recent feed.
	time.Sleep(100 * time.Millisecond)
	resp = makeRequest(t, http.MethodGet, testBaseURL+"/v1/swaps/recent?limit=5", nil, http.StatusOK)
	defer resp.Body.Close()

	var feed struct {
		Items []*models.SwapEvent `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&feed))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, models.DirectionExactInput, feed.Items[0].Direction)
	assert.Equal(t, trader, feed.Items[0].Caller)
	assert.Equal(t, "1000000", feed.Items[0].AmountIn)
	assert.Equal(t, swap.AmountOut, feed.Items[0].AmountOut)
}

func TestIntegration_ExactOutputRefund(t *testing.T) {
	l, cleanup := setupIntegrationTest(t)
	defer cleanup()

	before, err := l.BalanceOf(context.Background(), tokenIn, trader)
	require.NoError(t, err)

	swapPayload := map[string]interface{}{
		"caller":            trader,
		"amount_out":        "500000",
		"amount_in_maximum": "1000000",
	}
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/swaps/exact-output", swapPayload, http.StatusOK)
	defer resp.Body.Close()

	var swap server.SwapResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	assert.Equal(t, "500000", swap.AmountOut)
	assert.NotEmpty(t, swap.Refund, "a balanced pool should not need the whole ceiling")

	// Net debit is exactly the realized input, not the ceiling.
	after, err := l.BalanceOf(context.Background(), tokenIn, trader)
	require.NoError(t, err)
	spent := new(big.Int).Sub(before, after)
	assert.Equal(t, swap.AmountIn, spent.String())
}

func TestIntegration_PauseSwitchHaltsSwaps(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Flip the pause switch through the API.
	pausePayload := map[string]interface{}{"key": controls.KeySwapsPaused, "enabled": true}
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/switches", pausePayload, http.StatusOK)
	resp.Body.Close()

	swapPayload := map[string]interface{}{
		"caller":    trader,
		"amount_in": "1000",
	}
	resp = makeRequest(t, http.MethodPost, testBaseURL+"/v1/swaps/exact-input", swapPayload, http.StatusServiceUnavailable)
	resp.Body.Close()

	// Unpause and retry.
	unpausePayload := map[string]interface{}{"enabled": false}
	resp = makeRequest(t, http.MethodPut, testBaseURL+"/v1/switches/"+controls.KeySwapsPaused, unpausePayload, http.StatusOK)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodPost, testBaseURL+"/v1/swaps/exact-input", swapPayload, http.StatusOK)
	resp.Body.Close()
}

func TestIntegration_SwapValidation(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Zero amount is rejected before anything moves.
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/swaps/exact-input",
		map[string]interface{}{"caller": trader, "amount_in": "0"}, http.StatusBadRequest)
	resp.Body.Close()

	// An unfunded caller fails at the custody pull.
	resp = makeRequest(t, http.MethodPost, testBaseURL+"/v1/swaps/exact-input",
		map[string]interface{}{"caller": "nobody", "amount_in": "1000"}, http.StatusPaymentRequired)
	resp.Body.Close()
}

func TestIntegration_Authentication(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Test with invalid API key
	req, err := http.NewRequest(http.MethodGet, testBaseURL+"/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "invalid-key")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_ErrorHandling(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// 404 for non-existent endpoint, still JSON
	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/nonexistent", nil, http.StatusNotFound)
	defer resp.Body.Close()

	var errorResponse server.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errorResponse))
	assert.Equal(t, "not found", errorResponse.Error)
	assert.Equal(t, http.StatusNotFound, errorResponse.Code)
}

func TestIntegration_ConcurrentReads(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	const numRequests = 50
	const numGoroutines = 10

	results := make(chan error, numRequests)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < numRequests/numGoroutines; j++ {
				resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/health", nil, http.StatusOK)
				resp.Body.Close()
				results <- nil
			}
		}()
	}

	for i := 0; i < numRequests; i++ {
		assert.NoError(t, <-results)
	}
}
