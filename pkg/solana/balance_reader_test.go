package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAddrA = "So11111111111111111111111111111111111111112"
	testAddrB = "Vote111111111111111111111111111111111111111"

	// Nothing listens on port 1; connections are refused immediately
	deadEndpoint = "http://127.0.0.1:1"
)

type rpcCall struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// newRPCServer serves a JSON-RPC endpoint whose results come from the
// given per-method map, counting calls per method.
func newRPCServer(t *testing.T, results map[string]interface{}) (*httptest.Server, func(method string) int) {
	t.Helper()

	var mu sync.Mutex
	calls := map[string]int{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

		mu.Lock()
		calls[call.Method]++
		mu.Unlock()

		result, ok := results[call.Method]
		if !ok {
			http.Error(w, "method not served", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      call.ID,
			"result":  result,
		})
	}))
	t.Cleanup(server.Close)

	return server, func(method string) int {
		mu.Lock()
		defer mu.Unlock()
		return calls[method]
	}
}

func balanceResult(lamports uint64) map[string]interface{} {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 100},
		"value":   lamports,
	}
}

func accountResult(lamports uint64) map[string]interface{} {
	return map[string]interface{}{
		"lamports":   lamports,
		"owner":      "11111111111111111111111111111111",
		"data":       []interface{}{"", "base64"},
		"executable": false,
		"rentEpoch":  0,
	}
}

func multipleAccountsResult(accounts ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 100},
		"value":   accounts,
	}
}

func TestLamportsToSol(t *testing.T) {
	assert.Equal(t, 1.0, LamportsToSol(1_000_000_000))
	assert.Equal(t, 0.5, LamportsToSol(500_000_000))
	assert.Equal(t, 0.0, LamportsToSol(0))
}

func TestGetBalanceFallsBackToNextEndpoint(t *testing.T) {
	dead, deadCalls := newRPCServer(t, nil) // serves nothing, every call errors
	live, _ := newRPCServer(t, map[string]interface{}{
		"getBalance": balanceResult(2_500_000_000),
	})

	reader := NewBalanceReader([]string{dead.URL, live.URL}, time.Second)

	sol, ok := reader.GetBalance(context.Background(), testAddrA)
	require.True(t, ok)
	assert.Equal(t, 2.5, sol)
	assert.Equal(t, 1, deadCalls("getBalance"), "failed endpoint should be tried exactly once")
}

func TestGetBalanceZeroIsValidObservation(t *testing.T) {
	live, _ := newRPCServer(t, map[string]interface{}{
		"getBalance": balanceResult(0),
	})
	reader := NewBalanceReader([]string{live.URL}, time.Second)

	sol, ok := reader.GetBalance(context.Background(), testAddrA)
	assert.True(t, ok)
	assert.Equal(t, 0.0, sol)
}

func TestGetBalanceAllEndpointsFail(t *testing.T) {
	reader := NewBalanceReader([]string{deadEndpoint}, time.Second)

	sol, ok := reader.GetBalance(context.Background(), testAddrA)
	assert.False(t, ok)
	assert.Equal(t, 0.0, sol)
}

func TestGetBalanceInvalidAddress(t *testing.T) {
	live, liveCalls := newRPCServer(t, map[string]interface{}{
		"getBalance": balanceResult(1_000_000_000),
	})
	reader := NewBalanceReader([]string{live.URL}, time.Second)

	_, ok := reader.GetBalance(context.Background(), "not-a-wallet")
	assert.False(t, ok)
	assert.Equal(t, 0, liveCalls("getBalance"), "malformed address must not hit the network")
}

func TestGetBalancesPreservesOrderAndSkipsInvalid(t *testing.T) {
	live, _ := newRPCServer(t, map[string]interface{}{
		"getSlot": 100,
		"getMultipleAccounts": multipleAccountsResult(
			accountResult(1_000_000_000),
			nil, // account does not exist on chain yet
		),
	})
	reader := NewBalanceReader([]string{live.URL}, time.Second)

	results := reader.GetBalances(context.Background(), []string{testAddrA, "bogus", testAddrB})
	require.Len(t, results, 3)

	require.NotNil(t, results[0])
	assert.Equal(t, 1.0, *results[0])

	assert.Nil(t, results[1], "malformed address yields a nil slot")

	// Missing on-chain account reads as a real zero balance
	require.NotNil(t, results[2])
	assert.Equal(t, 0.0, *results[2])
}

func TestGetBalancesProbesBeforeBatch(t *testing.T) {
	dead, deadCalls := newRPCServer(t, nil)
	live, liveCalls := newRPCServer(t, map[string]interface{}{
		"getSlot": 100,
		"getMultipleAccounts": multipleAccountsResult(
			accountResult(3_000_000_000),
		),
	})
	reader := NewBalanceReader([]string{dead.URL, live.URL}, time.Second)

	results := reader.GetBalances(context.Background(), []string{testAddrA})
	require.Len(t, results, 1)
	require.NotNil(t, results[0])
	assert.Equal(t, 3.0, *results[0])

	// The dead endpoint failed its probe, so the batch never went there
	assert.Equal(t, 1, deadCalls("getSlot"))
	assert.Equal(t, 0, deadCalls("getMultipleAccounts"))
	assert.Equal(t, 1, liveCalls("getMultipleAccounts"))
}

func TestGetBalancesAllEndpointsDown(t *testing.T) {
	reader := NewBalanceReader([]string{deadEndpoint}, time.Second)

	results := reader.GetBalances(context.Background(), []string{testAddrA, testAddrB})
	require.Len(t, results, 2)
	assert.Nil(t, results[0])
	assert.Nil(t, results[1])
}

func TestSetEndpointsTakesEffectWithoutRestart(t *testing.T) {
	reader := NewBalanceReader([]string{deadEndpoint}, time.Second)
	_, ok := reader.GetBalance(context.Background(), testAddrA)
	require.False(t, ok)

	live, _ := newRPCServer(t, map[string]interface{}{
		"getBalance": balanceResult(4_000_000_000),
	})

	// An operator swaps in a working endpoint; the same reader instance
	// picks it up on the next read
	reader.SetEndpoints([]string{live.URL, live.URL, "  "})
	assert.Equal(t, []string{live.URL}, reader.Endpoints())

	sol, ok := reader.GetBalance(context.Background(), testAddrA)
	require.True(t, ok)
	assert.Equal(t, 4.0, sol)
}

func TestGetBalancesEmptyInput(t *testing.T) {
	reader := NewBalanceReader([]string{deadEndpoint}, time.Second)
	assert.Empty(t, reader.GetBalances(context.Background(), nil))
}
