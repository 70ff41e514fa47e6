package models

import (
	"time"

	"gorm.io/gorm"
)

// RpcConfig represents one Solana RPC endpoint in the fallback list.
// Lower priority values are tried first.
type RpcConfig struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Endpoint  string         `json:"endpoint" gorm:"size:255;not null"`
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	Priority  int            `json:"priority" gorm:"default:100"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (RpcConfig) TableName() string {
	return "rpc_configs"
}
