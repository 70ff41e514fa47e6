package models

import (
	"time"

	"gorm.io/gorm"
)

// Participant represents one wallet registered in one arena.
// InitialBalance is snapshotted once at registration and never mutated;
// CurrentBalance, Profit and Rank are refreshed by the sync worker.
type Participant struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ArenaID        uint           `json:"arena_id" gorm:"not null;index;uniqueIndex:idx_participants_arena_wallet"`
	Arena          *Arena         `json:"arena,omitempty" gorm:"foreignKey:ArenaID"`
	WalletAddress  string         `json:"wallet_address" gorm:"size:100;not null;index;uniqueIndex:idx_participants_arena_wallet"`
	InitialBalance float64        `json:"initial_balance" gorm:"not null"`
	CurrentBalance float64        `json:"current_balance"`
	TotalDeposit   float64        `json:"total_deposit" gorm:"default:0"`
	Profit         float64        `json:"profit"`
	Rank           int            `json:"rank" gorm:"default:0"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Participant) TableName() string {
	return "participants"
}
