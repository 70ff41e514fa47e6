package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoiPercent(t *testing.T) {
	tests := []struct {
		name     string
		initial  float64
		adjusted float64
		want     float64
	}{
		{"simple gain", 10, 15, 50.0},
		{"simple loss", 10, 5, -50.0},
		{"unchanged", 10, 10, 0},
		{"zero baseline", 0, 100, 0},
		{"negative baseline", -5, 100, 0},
		{"negative adjusted", 10, -2, -120.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoiPercent(tt.initial, tt.adjusted))
		})
	}
}

func TestAdjustedBalance(t *testing.T) {
	assert.Equal(t, 15.0, AdjustedBalance(25, 10))
	assert.Equal(t, 0.0, AdjustedBalance(10, 10))

	// Deposit exceeding the balance signals net capital outflow and must
	// propagate as a negative value, not be clamped to zero
	assert.Equal(t, -4.0, AdjustedBalance(6, 10))
}

func TestPnlAbsolute(t *testing.T) {
	assert.Equal(t, 5.0, PnlAbsolute(10, 15))
	assert.Equal(t, -12.0, PnlAbsolute(10, -2))
}

func TestDepositNeutralized(t *testing.T) {
	// A 10 SOL external deposit on top of a 10 -> 25 balance move leaves
	// exactly the trading gain
	adjusted := AdjustedBalance(25, 10)
	assert.Equal(t, 15.0, adjusted)
	assert.Equal(t, 50.0, RoiPercent(10, adjusted))
	assert.Equal(t, 5.0, PnlAbsolute(10, adjusted))
}
