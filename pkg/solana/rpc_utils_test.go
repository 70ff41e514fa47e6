package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupEndpoints(t *testing.T) {
	got := DedupEndpoints([]string{
		" https://rpc-one.example.com ",
		"https://rpc-two.example.com",
		"https://rpc-one.example.com",
		"",
		"   ",
	})
	assert.Equal(t, []string{
		"https://rpc-one.example.com",
		"https://rpc-two.example.com",
	}, got)
}

func TestEndpointsFromEnv(t *testing.T) {
	t.Setenv("SOLANA_RPC_LIST", "https://rpc-one.example.com, https://rpc-two.example.com,https://rpc-one.example.com")
	assert.Equal(t, []string{
		"https://rpc-one.example.com",
		"https://rpc-two.example.com",
	}, EndpointsFromEnv())
}

func TestEndpointsFromEnvFallback(t *testing.T) {
	t.Setenv("SOLANA_RPC_LIST", "")
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, EndpointsFromEnv())
}

func TestCheckRPCListAsync(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RPCResponse{Jsonrpc: "2.0", Result: "ok", ID: 1})
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	results := CheckRPCListAsync(context.Background(), []string{healthy.URL, broken.URL, deadEndpoint}, time.Second)
	require.Len(t, results, 3)

	byURL := map[string]RPCCheckResult{}
	for _, res := range results {
		byURL[res.URL] = res
	}

	assert.True(t, byURL[healthy.URL].OK)
	assert.Empty(t, byURL[healthy.URL].Error)

	assert.False(t, byURL[broken.URL].OK)
	assert.Contains(t, byURL[broken.URL].Error, "status code: 503")

	assert.False(t, byURL[deadEndpoint].OK)
	assert.NotEmpty(t, byURL[deadEndpoint].Error)
}

func TestCheckRPCListAsyncCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer stalled.Close()

	start := time.Now()
	results := CheckRPCListAsync(ctx, []string{stalled.URL}, time.Second)
	assert.Less(t, time.Since(start), time.Second, "cancellation must not wait out the timeout")
	for _, res := range results {
		assert.False(t, res.OK)
	}
}
