package leaderboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradehub/internal/models"
)

// Well-formed base58 public keys for test wallets
const (
	walletA = "So11111111111111111111111111111111111111112"
	walletB = "Vote111111111111111111111111111111111111111"
	walletC = "Stake11111111111111111111111111111111111111"
)

// fakeChainReader scripts batch results and counts calls
type fakeChainReader struct {
	mu         sync.Mutex
	balances   map[string]float64 // address -> live balance; missing means nil slot
	batchCalls int
	entered    chan struct{} // closed-ish signal: receives once per GetBalances entry
	release    chan struct{} // when non-nil, GetBalances blocks until it fires
}

func (f *fakeChainReader) GetBalance(ctx context.Context, address string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[address]
	return balance, ok
}

func (f *fakeChainReader) GetBalances(ctx context.Context, addresses []string) []*float64 {
	f.mu.Lock()
	f.batchCalls++
	entered := f.entered
	release := f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*float64, len(addresses))
	for i, address := range addresses {
		if balance, ok := f.balances[address]; ok {
			value := balance
			results[i] = &value
		}
	}
	return results
}

// fakeDepositSource serves deposit totals from a map
type fakeDepositSource struct {
	totals map[uint]float64
}

func (f *fakeDepositSource) TotalDeposits(participantID uint) (float64, error) {
	return f.totals[participantID], nil
}

func participantsFixture() []models.Participant {
	return []models.Participant{
		{ID: 1, ArenaID: 7, WalletAddress: walletA, InitialBalance: 10, CurrentBalance: 10},
		{ID: 2, ArenaID: 7, WalletAddress: walletB, InitialBalance: 10, CurrentBalance: 20},
		{ID: 3, ArenaID: 7, WalletAddress: walletC, InitialBalance: 10, CurrentBalance: 30},
	}
}

func TestRebuildRanksByCleanProfit(t *testing.T) {
	chain := &fakeChainReader{balances: map[string]float64{
		walletA: 15, // +50% clean
		walletB: 25, // 10 deposited, so +50% clean as well
		walletC: 12, // +20% clean
	}}
	deposits := &fakeDepositSource{totals: map[uint]float64{2: 10}}
	a := NewAssembler(chain, deposits)

	entries := a.Rebuild(context.Background(), participantsFixture())
	require.Len(t, entries, 3)

	// A and B tie at 50%; join order breaks the tie
	assert.Equal(t, uint(1), entries[0].ID)
	assert.Equal(t, uint(2), entries[1].ID)
	assert.Equal(t, uint(3), entries[2].ID)

	assert.Equal(t, 50.0, entries[0].Profit)
	assert.Equal(t, 50.0, entries[1].Profit)
	assert.Equal(t, 20.0, entries[2].Profit)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)

	assert.False(t, a.Degraded())
}

func TestRebuildDeterministic(t *testing.T) {
	chain := &fakeChainReader{balances: map[string]float64{
		walletA: 15,
		walletB: 15,
		walletC: 12,
	}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})

	first := a.Rebuild(context.Background(), participantsFixture())
	second := a.Rebuild(context.Background(), participantsFixture())

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Profit, second[i].Profit)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}
}

func TestRebuildRetainsStoredBalanceOnFailedSlots(t *testing.T) {
	// Only wallet B resolves; A and C keep their stored balances
	chain := &fakeChainReader{balances: map[string]float64{walletB: 500}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})

	participants := []models.Participant{
		{ID: 1, ArenaID: 7, WalletAddress: walletA, InitialBalance: 10, CurrentBalance: 10},
		{ID: 2, ArenaID: 7, WalletAddress: walletB, InitialBalance: 10, CurrentBalance: 20},
		{ID: 3, ArenaID: 7, WalletAddress: walletC, InitialBalance: 10, CurrentBalance: 30},
	}
	entries := a.Rebuild(context.Background(), participants)
	require.Len(t, entries, 3)

	byID := make(map[uint]Entry)
	for _, e := range entries {
		byID[e.ID] = e
	}
	assert.Equal(t, 10.0, byID[1].CurrentBalance)
	assert.Equal(t, 500.0, byID[2].CurrentBalance)
	assert.Equal(t, 30.0, byID[3].CurrentBalance)
}

func TestRebuildAllEndpointsDown(t *testing.T) {
	chain := &fakeChainReader{balances: map[string]float64{}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})

	entries := a.Rebuild(context.Background(), participantsFixture())
	require.Len(t, entries, 3)

	byID := make(map[uint]Entry)
	for _, e := range entries {
		byID[e.ID] = e
	}
	assert.Equal(t, 10.0, byID[1].CurrentBalance)
	assert.Equal(t, 20.0, byID[2].CurrentBalance)
	assert.Equal(t, 30.0, byID[3].CurrentBalance)

	assert.True(t, a.Degraded())
}

func TestRebuildSkipsMalformedAddress(t *testing.T) {
	chain := &fakeChainReader{balances: map[string]float64{walletA: 15}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})

	participants := []models.Participant{
		{ID: 1, ArenaID: 7, WalletAddress: walletA, InitialBalance: 10, CurrentBalance: 10},
		{ID: 2, ArenaID: 7, WalletAddress: "not-a-wallet", InitialBalance: 10, CurrentBalance: 20},
	}

	entries := a.Rebuild(context.Background(), participants)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(1), entries[0].ID)
}

func TestApplyBalanceUpdateIsolation(t *testing.T) {
	chain := &fakeChainReader{balances: map[string]float64{}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})
	a.Rebuild(context.Background(), participantsFixture())

	a.ApplyBalanceUpdate(walletB, 42)

	byID := make(map[uint]Entry)
	for _, e := range a.Ranked() {
		byID[e.ID] = e
	}
	assert.Equal(t, 10.0, byID[1].CurrentBalance)
	assert.Equal(t, 42.0, byID[2].CurrentBalance)
	assert.Equal(t, 30.0, byID[3].CurrentBalance)

	// Profit recomputed from the existing deposit total
	assert.Equal(t, 320.0, byID[2].Profit)
}

func TestApplyParticipantBalanceScoped(t *testing.T) {
	// Same wallet registered in two arenas: the scoped push touches only
	// the addressed participant row
	chain := &fakeChainReader{balances: map[string]float64{}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})

	participants := []models.Participant{
		{ID: 1, ArenaID: 7, WalletAddress: walletA, InitialBalance: 10, CurrentBalance: 10},
		{ID: 2, ArenaID: 8, WalletAddress: walletA, InitialBalance: 10, CurrentBalance: 10},
	}
	a.Rebuild(context.Background(), participants)

	a.ApplyParticipantBalance(2, 99)

	byID := make(map[uint]Entry)
	for _, e := range a.Ranked() {
		byID[e.ID] = e
	}
	assert.Equal(t, 10.0, byID[1].CurrentBalance)
	assert.Equal(t, 99.0, byID[2].CurrentBalance)
}

func TestPushDuringResyncWins(t *testing.T) {
	chain := &fakeChainReader{balances: map[string]float64{
		walletA: 15,
		walletB: 25,
		walletC: 12,
	}}
	a := NewAssembler(chain, &fakeDepositSource{totals: map[uint]float64{}})
	a.Rebuild(context.Background(), participantsFixture())

	// Second resync blocks inside the batch read; a push lands meanwhile
	chain.mu.Lock()
	chain.entered = make(chan struct{}, 1)
	chain.release = make(chan struct{})
	chain.mu.Unlock()

	done := make(chan []Entry, 1)
	go func() {
		done <- a.Rebuild(context.Background(), participantsFixture())
	}()

	<-chain.entered
	a.ApplyBalanceUpdate(walletB, 777)
	// The push observation is strictly newer than the resync fetch start
	time.Sleep(10 * time.Millisecond)
	close(chain.release)
	<-done

	byID := make(map[uint]Entry)
	for _, e := range a.Ranked() {
		byID[e.ID] = e
	}
	assert.Equal(t, 777.0, byID[2].CurrentBalance, "push observed during resync must not be clobbered")
	assert.Equal(t, 15.0, byID[1].CurrentBalance)
}
