package models

import (
	"time"

	"gorm.io/gorm"
)

// DepositLog represents one detected external inflow to a participant's
// wallet. Rows are written by the deposit ingestion pipeline and are
// read-only for the leaderboard engine, which only consumes the aggregate.
type DepositLog struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	ParticipantID uint           `json:"participant_id" gorm:"not null;index"`
	Participant   *Participant   `json:"participant,omitempty" gorm:"foreignKey:ParticipantID"`
	WalletAddress string         `json:"wallet_address" gorm:"size:100;not null"`
	AmountSol     float64        `json:"amount_sol" gorm:"not null"`
	Signature     string         `json:"signature" gorm:"size:128;not null;uniqueIndex:idx_deposit_logs_signature"`
	DetectedAt    time.Time      `json:"detected_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (DepositLog) TableName() string {
	return "deposit_logs"
}
