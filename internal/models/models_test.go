package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parseIndexes(t *testing.T, model interface{}) map[string]schema.Index {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s.ParseIndexes()
}

// A wallet may only hold one row per arena; concurrent joins racing past
// the handler's pre-check must collide on the index, not create twins.
func TestParticipantUniquePerArena(t *testing.T) {
	indexes := parseIndexes(t, &Participant{})

	idx, ok := indexes["idx_participants_arena_wallet"]
	require.True(t, ok, "composite unique index on (arena_id, wallet_address) missing")
	assert.Equal(t, "UNIQUE", idx.Class)

	require.Len(t, idx.Fields, 2)
	fields := []string{idx.Fields[0].DBName, idx.Fields[1].DBName}
	assert.Contains(t, fields, "arena_id")
	assert.Contains(t, fields, "wallet_address")
}

func TestDepositLogSignatureUnique(t *testing.T) {
	indexes := parseIndexes(t, &DepositLog{})

	idx, ok := indexes["idx_deposit_logs_signature"]
	require.True(t, ok, "unique index on signature missing")
	assert.Equal(t, "UNIQUE", idx.Class)
	require.Len(t, idx.Fields, 1)
	assert.Equal(t, "signature", idx.Fields[0].DBName)
}
