package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hiehoo/pokemmo-server/internal/solana"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeChain is a controllable ChainService.
type fakeChain struct {
	validSig  bool
	sol       float64
	token     float64
	mint      string
	txs       []solana.TransactionInfo
	txErr     error
	lastLimit int
}

func (f *fakeChain) VerifySignature(address, message, signature string) bool { return f.validSig }
func (f *fakeChain) Balance(context.Context, string) float64                { return f.sol }
func (f *fakeChain) TokenBalance(context.Context, string) float64           { return f.token }
func (f *fakeChain) HasTokenMint() bool                                     { return f.mint != "" }
func (f *fakeChain) TokenMintAddress() string                               { return f.mint }

func (f *fakeChain) RecentTransactions(_ context.Context, _ string, limit int) ([]solana.TransactionInfo, error) {
	f.lastLimit = limit
	return f.txs, f.txErr
}

func newTestRouter(t *testing.T, chain *fakeChain) *gin.Engine {
	t.Helper()
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	return NewRouter(chain, testAuthConfig(), ws, zaptest.NewLogger(t))
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWalletConnect_Success(t *testing.T) {
	chain := &fakeChain{validSig: true, sol: 2.5}
	router := newTestRouter(t, chain)

	rec := postJSON(t, router, "/api/auth/wallet-connect", gin.H{
		"walletAddress": "wallet-A",
		"signature":     "sig",
		"message":       "login",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "wallet-A", body["walletAddress"])
	assert.Equal(t, 2.5, body["balance"])
	assert.NotEmpty(t, body["token"])
}

func TestWalletConnect_IssuedTokenVerifies(t *testing.T) {
	chain := &fakeChain{validSig: true}
	router := newTestRouter(t, chain)

	rec := postJSON(t, router, "/api/auth/wallet-connect", gin.H{
		"walletAddress": "wallet-A",
		"signature":     "sig",
		"message":       "login",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = postJSON(t, router, "/api/auth/verify-token", gin.H{"token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "wallet-A", body["walletAddress"])
}

func TestWalletConnect_MissingFields(t *testing.T) {
	router := newTestRouter(t, &fakeChain{validSig: true})

	for _, body := range []gin.H{
		{},
		{"walletAddress": "wallet-A"},
		{"walletAddress": "wallet-A", "signature": "sig"},
		{"signature": "sig", "message": "login"},
	} {
		rec := postJSON(t, router, "/api/auth/wallet-connect", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestWalletConnect_InvalidSignature(t *testing.T) {
	router := newTestRouter(t, &fakeChain{validSig: false})

	rec := postJSON(t, router, "/api/auth/wallet-connect", gin.H{
		"walletAddress": "wallet-A",
		"signature":     "bad",
		"message":       "login",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid signature", decodeBody(t, rec)["error"])
}

func TestVerifyToken_Invalid(t *testing.T) {
	router := newTestRouter(t, &fakeChain{})

	rec := postJSON(t, router, "/api/auth/verify-token", gin.H{"token": "junk"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["valid"])
}

func TestVerifyToken_Missing(t *testing.T) {
	router := newTestRouter(t, &fakeChain{})

	rec := postJSON(t, router, "/api/auth/verify-token", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletBalance_WithMint(t *testing.T) {
	chain := &fakeChain{sol: 1.25, token: 42, mint: "mint-address"}
	router := newTestRouter(t, chain)

	rec := getJSON(t, router, "/api/auth/wallet-balance/wallet-A")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "wallet-A", body["walletAddress"])
	assert.Equal(t, 1.25, body["solBalance"])
	assert.Equal(t, 42.0, body["tokenBalance"])
	assert.Equal(t, "mint-address", body["tokenMint"])
}

func TestWalletBalance_WithoutMint(t *testing.T) {
	chain := &fakeChain{sol: 1.25, token: 42}
	router := newTestRouter(t, chain)

	rec := getJSON(t, router, "/api/auth/wallet-balance/wallet-A")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 0.0, body["tokenBalance"])
	assert.Nil(t, body["tokenMint"])
}

func TestTransactions_DefaultLimit(t *testing.T) {
	chain := &fakeChain{txs: []solana.TransactionInfo{{Signature: "sig-1", Success: true}}}
	router := newTestRouter(t, chain)

	rec := getJSON(t, router, "/api/auth/transactions/wallet-A")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultTransactionLimit, chain.lastLimit)

	body := decodeBody(t, rec)
	txs, ok := body["transactions"].([]any)
	require.True(t, ok)
	assert.Len(t, txs, 1)
}

func TestTransactions_CustomLimit(t *testing.T) {
	chain := &fakeChain{}
	router := newTestRouter(t, chain)

	rec := getJSON(t, router, "/api/auth/transactions/wallet-A?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, chain.lastLimit)
}

func TestTransactions_LookupFailure(t *testing.T) {
	chain := &fakeChain{txErr: assert.AnError}
	router := newTestRouter(t, chain)

	rec := getJSON(t, router, "/api/auth/transactions/wallet-A")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &fakeChain{})

	rec := getJSON(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
