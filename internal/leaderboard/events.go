package leaderboard

// Event actions on the arena_events queue
const (
	EventStartSync         = "start_sync"
	EventStopSync          = "stop_sync"
	EventParticipantJoined = "participant_joined"
	EventDepositDetected   = "deposit_detected"
	EventResyncRequested   = "resync_requested"
)

// ArenaEvent is the fire-and-forget change-feed message between the API
// and the sync worker. No payload diff is guaranteed; consumers re-fetch
// from the store.
type ArenaEvent struct {
	Action        string `json:"action"`
	ArenaID       uint   `json:"arena_id"`
	ParticipantID uint   `json:"participant_id,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
}
