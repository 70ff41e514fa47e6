package models

import (
	"time"

	"gorm.io/gorm"
)

// ArenaAccessType represents who may join an arena
type ArenaAccessType string

const (
	AccessPublic    ArenaAccessType = "public"
	AccessPrivate   ArenaAccessType = "private"
	AccessWhitelist ArenaAccessType = "whitelist"
)

// DistributionStatus represents the reward distribution state of an arena
type DistributionStatus string

const (
	DistributionPending     DistributionStatus = "pending"
	DistributionProcessing  DistributionStatus = "processing"
	DistributionDistributed DistributionStatus = "distributed"
	DistributionFailed      DistributionStatus = "failed"
)

// Arena represents a time-boxed trading competition
type Arena struct {
	ID                 uint               `json:"id" gorm:"primaryKey"`
	Title              string             `json:"title" gorm:"size:200;not null"`
	MinBalance         float64            `json:"min_balance" gorm:"default:0"`
	StartTime          time.Time          `json:"start_time"`
	EndTime            time.Time          `json:"end_time"`
	AccessType         ArenaAccessType    `json:"access_type" gorm:"size:20;default:public"`
	RewardTokenAmount  float64            `json:"reward_token_amount" gorm:"default:0"`
	DistributionStatus DistributionStatus `json:"distribution_status" gorm:"size:20;default:pending"`
	EscrowAddress      string             `json:"escrow_address" gorm:"size:100"`
	Participants       []Participant      `json:"participants,omitempty" gorm:"foreignKey:ArenaID"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Arena) TableName() string {
	return "arenas"
}

// IsLive reports whether the arena is currently running
func (a *Arena) IsLive(now time.Time) bool {
	return now.After(a.StartTime) && now.Before(a.EndTime)
}
