package solana

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

const defaultAttemptTimeout = 5 * time.Second

// LamportsToSol converts lamports to whole SOL
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}

// BalanceReader reads SOL balances against a prioritized list of RPC
// endpoints. Every network call is bounded by a per-attempt timeout; on
// timeout or error the reader silently advances to the next endpoint.
// Absence of data is the only failure signal surfaced to callers.
type BalanceReader struct {
	mu        sync.RWMutex
	endpoints []string
	timeout   time.Duration

	// newClient is swappable so the endpoint set can be probed without a
	// fresh TCP setup per call in the future; rpc.New reuses an internal
	// http client per instance.
	newClient func(endpoint string) *rpc.Client
}

// NewBalanceReader creates a reader over the given endpoints, deduplicated
// in priority order. A zero timeout uses the default of 5s per attempt.
func NewBalanceReader(endpoints []string, timeout time.Duration) *BalanceReader {
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &BalanceReader{
		endpoints: DedupEndpoints(endpoints),
		timeout:   timeout,
		newClient: rpc.New,
	}
}

// Endpoints returns the active endpoint list in priority order
func (r *BalanceReader) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.endpoints...)
}

// SetEndpoints replaces the endpoint list, deduplicated in priority
// order. Reads already in flight finish against the list they started
// with; operators edit rpc configs without restarting anything.
func (r *BalanceReader) SetEndpoints(endpoints []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = DedupEndpoints(endpoints)
}

// GetBalance returns the SOL balance of address. The second return value
// is false only when every endpoint failed; a zero balance with ok=true
// is a valid observation and must not be treated as failure.
func (r *BalanceReader) GetBalance(ctx context.Context, address string) (float64, bool) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		log.Errorf("> invalid wallet address %s: %v", address, err)
		return 0, false
	}

	endpoints := r.Endpoints()
	for _, endpoint := range endpoints {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := r.newClient(endpoint).GetBalance(attemptCtx, pubkey, rpc.CommitmentFinalized)
		cancel()
		if err != nil {
			log.Warnf("> getBalance via %s failed for %s: %v", endpoint, address, err)
			continue
		}
		return LamportsToSol(resp.Value), true
	}

	log.Errorf("> all %d RPC endpoints failed for getBalance(%s)", len(endpoints), address)
	return 0, false
}

// GetBalances batch-fetches SOL balances for addresses, preserving input
// order. A nil slot means the balance could not be observed (malformed
// address, or every endpoint failed); a present zero is a real balance.
// The endpoint is committed to with a lightweight getSlot probe before the
// batch call so a dead endpoint cannot produce a partial batch.
func (r *BalanceReader) GetBalances(ctx context.Context, addresses []string) []*float64 {
	results := make([]*float64, len(addresses))
	if len(addresses) == 0 {
		return results
	}

	pubkeys := make([]solana.PublicKey, 0, len(addresses))
	indexes := make([]int, 0, len(addresses))
	for i, address := range addresses {
		pubkey, err := solana.PublicKeyFromBase58(address)
		if err != nil {
			log.Errorf("> skipping invalid wallet address %s: %v", address, err)
			continue
		}
		pubkeys = append(pubkeys, pubkey)
		indexes = append(indexes, i)
	}
	if len(pubkeys) == 0 {
		return results
	}

	endpoints := r.Endpoints()
	for _, endpoint := range endpoints {
		client := r.newClient(endpoint)

		probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		_, err := client.GetSlot(probeCtx, rpc.CommitmentFinalized)
		cancel()
		if err != nil {
			log.Warnf("> getSlot probe via %s failed: %v", endpoint, err)
			continue
		}

		batchCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := client.GetMultipleAccounts(batchCtx, pubkeys...)
		cancel()
		if err != nil {
			log.Warnf("> getMultipleAccounts via %s failed: %v", endpoint, err)
			continue
		}

		for i, accountInfo := range resp.Value {
			// A missing account is a funded-to-zero wallet, not a failure
			var sol float64
			if accountInfo != nil {
				sol = LamportsToSol(accountInfo.Lamports)
			}
			value := sol
			results[indexes[i]] = &value
		}
		return results
	}

	log.Errorf("> all %d RPC endpoints failed for getMultipleAccounts of %d addresses", len(endpoints), len(pubkeys))
	return results
}
