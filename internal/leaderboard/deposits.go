package leaderboard

import (
	"gorm.io/gorm"

	"tradehub/internal/models"
)

// DepositSource provides the cumulative external deposit total per
// participant. Classification of inbound transfers happens in the
// ingestion pipeline; this layer only consumes the aggregate.
type DepositSource interface {
	TotalDeposits(participantID uint) (float64, error)
}

// GormDepositSource sums deposit_logs rows from the store
type GormDepositSource struct {
	db *gorm.DB
}

func NewGormDepositSource(db *gorm.DB) *GormDepositSource {
	return &GormDepositSource{db: db}
}

func (s *GormDepositSource) TotalDeposits(participantID uint) (float64, error) {
	var total float64
	err := s.db.Model(&models.DepositLog{}).
		Where("participant_id = ?", participantID).
		Select("COALESCE(SUM(amount_sol), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
