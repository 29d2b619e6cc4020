package server

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicent00/swap-facade/internal/facade"
	"github.com/vicent00/swap-facade/internal/ledger"
	"github.com/vicent00/swap-facade/internal/router"
)

const (
	testTokenIn  = "TOKA"
	testTokenOut = "TOKB"
	testCaller   = "alice"
	testReserve  = int64(1_000_000_000)
)

type testEnv struct {
	echo   *echo.Echo
	ledger *ledger.MemoryLedger
	amm    *router.AMM
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	l := ledger.NewMemoryLedger()
	l.Mint(testTokenIn, testCaller, big.NewInt(10_000_000))
	require.NoError(t, l.Approve(context.Background(), testTokenIn, testCaller, "facade", big.NewInt(10_000_000)))

	l.Mint(testTokenIn, "pool", big.NewInt(testReserve))
	l.Mint(testTokenOut, "pool", big.NewInt(testReserve))

	amm := router.NewAMM(l, "router", logger)
	require.NoError(t, amm.AddPool(router.Pool{
		TokenA:  testTokenIn,
		TokenB:  testTokenOut,
		Fee:     router.FeeTier3000,
		Account: "pool",
	}))

	f, err := facade.New(facade.PairConfig{
		TokenIn:       testTokenIn,
		TokenOut:      testTokenOut,
		Fee:           router.FeeTier3000,
		Account:       "facade",
		RouterAccount: "router",
	}, l, amm, facade.WithLogger(logger))
	require.NoError(t, err)

	h := &Handlers{
		Facade:  f,
		Quoter:  amm,
		Ledger:  l,
		DevMode: true,
		Logger:  logger,
	}

	e := echo.New()
	RegisterRoutes(e, h, cfg)

	return &testEnv{echo: e, ledger: l, amm: amm}
}

func (env *testEnv) request(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.request(http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "TOKA/TOKB", resp.Pair)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	expected, err := env.amm.QuoteExactInput(context.Background(), testTokenIn, testTokenOut, router.FeeTier3000, big.NewInt(1000))
	require.NoError(t, err)

	rec := env.request(http.MethodGet, "/v1/quote?direction=exact_input&amount=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[QuoteResponse](t, rec)
	assert.Equal(t, "exact_input", resp.Direction)
	assert.Equal(t, expected.String(), resp.Quoted)
	assert.Equal(t, uint32(3000), resp.FeeTier)
}

func TestQuoteValidation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	assert.Equal(t, http.StatusBadRequest, env.request(http.MethodGet, "/v1/quote?direction=sideways&amount=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.request(http.MethodGet, "/v1/quote?amount=", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.request(http.MethodGet, "/v1/quote?amount=-5", "").Code)
}

func TestSwapExactInput(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	expected, err := env.amm.QuoteExactInput(context.Background(), testTokenIn, testTokenOut, router.FeeTier3000, big.NewInt(1_000_000))
	require.NoError(t, err)

	rec := env.request(http.MethodPost, "/v1/swaps/exact-input",
		`{"caller":"alice","amount_in":"1000000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SwapResponse](t, rec)
	assert.Equal(t, "exact_input", resp.Direction)
	assert.Equal(t, "1000000", resp.AmountIn)
	assert.Equal(t, expected.String(), resp.AmountOut)

	// The output landed in the caller's account.
	bal, err := env.ledger.BalanceOf(context.Background(), testTokenOut, testCaller)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), bal.String())
}

func TestSwapExactInputValidation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	cases := []struct {
		body string
		code int
	}{
		{`{"caller":"alice","amount_in":"0"}`, http.StatusBadRequest},
		{`{"caller":"alice","amount_in":"abc"}`, http.StatusBadRequest},
		{`{"caller":"","amount_in":"100"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
		// bob never funded or approved anything
		{`{"caller":"bob","amount_in":"100"}`, http.StatusPaymentRequired},
	}
	for _, tc := range cases {
		rec := env.request(http.MethodPost, "/v1/swaps/exact-input", tc.body)
		assert.Equal(t, tc.code, rec.Code, "body %s -> %s", tc.body, rec.Body.String())
	}
}

func TestSwapExactInputMinimumViolation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	// Demand more output than the pool can give for this input.
	rec := env.request(http.MethodPost, "/v1/swaps/exact-input",
		`{"caller":"alice","amount_in":"1000","min_amount_out":"999999999"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Failed swap left the caller whole.
	bal, err := env.ledger.BalanceOf(context.Background(), testTokenIn, testCaller)
	require.NoError(t, err)
	assert.Equal(t, "10000000", bal.String())
}

func TestSwapExactOutput(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	required, err := env.amm.QuoteExactOutput(context.Background(), testTokenIn, testTokenOut, router.FeeTier3000, big.NewInt(500_000))
	require.NoError(t, err)
	ceiling := new(big.Int).Add(required, big.NewInt(10_000))

	rec := env.request(http.MethodPost, "/v1/swaps/exact-output",
		`{"caller":"alice","amount_out":"500000","amount_in_maximum":"`+ceiling.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SwapResponse](t, rec)
	assert.Equal(t, "exact_output", resp.Direction)
	assert.Equal(t, required.String(), resp.AmountIn)
	assert.Equal(t, "500000", resp.AmountOut)
	assert.Equal(t, "10000", resp.Refund)

	// Exact output was delivered and the unspent ceiling came back.
	outBal, err := env.ledger.BalanceOf(context.Background(), testTokenOut, testCaller)
	require.NoError(t, err)
	assert.Equal(t, "500000", outBal.String())

	inBal, err := env.ledger.BalanceOf(context.Background(), testTokenIn, testCaller)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(big.NewInt(10_000_000), required).String(), inBal.String())
}

func TestSwapExactOutputCeilingTooLow(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	// A 1-unit ceiling cannot buy 500000 out of a balanced pool.
	rec := env.request(http.MethodPost, "/v1/swaps/exact-output",
		`{"caller":"alice","amount_out":"500000","amount_in_maximum":"1"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBalances(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.request(http.MethodGet, "/v1/balances/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[BalancesResponse](t, rec)
	assert.Equal(t, "alice", resp.Account)
	assert.Equal(t, "10000000", resp.Balances[testTokenIn])
	assert.Equal(t, "0", resp.Balances[testTokenOut])
}

func TestRecentSwapsWithoutCache(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.request(http.MethodGet, "/v1/swaps/recent", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIntentParseEndpoint(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.request(http.MethodPost, "/v1/intent/parse",
		`{"command":"swap 100 TOKA for TOKB"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "exact_input", resp["direction"])
	assert.Equal(t, "100", resp["amount_in"])

	// No LLM fallback configured, so gibberish is a client error.
	rec = env.request(http.MethodPost, "/v1/intent/parse", `{"command":"what is the weather"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwitchesWithoutStore(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.request(http.MethodGet, "/v1/switches", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	env := newTestEnv(t, ServerConfig{APIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundJSON(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.request(http.MethodGet, "/v1/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
