package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradehub/internal/leaderboard"
	"tradehub/internal/models"
	dbconfig "tradehub/pkg/config"
)

// ListDepositLogs returns the deposit logs of a participant
func ListDepositLogs(c *gin.Context) {
	participantID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var logs []models.DepositLog
	if err := dbconfig.DB.Where("participant_id = ?", participantID).
		Order("detected_at asc").Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// DepositLogRequest represents an already-classified external deposit
// reported by the ingestion pipeline
type DepositLogRequest struct {
	ParticipantID uint    `json:"participant_id" binding:"required"`
	AmountSol     float64 `json:"amount_sol" binding:"required,gt=0"`
	Signature     string  `json:"signature" binding:"required"`
	DetectedAt    string  `json:"detected_at"`
}

// CreateDepositLog records one detected external inflow and bumps the
// participant's denormalized deposit total. The signature is unique, so
// re-delivered detections are rejected instead of double counted.
func CreateDepositLog(c *gin.Context) {
	var request DepositLogRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var participant models.Participant
	if err := dbconfig.DB.First(&participant, request.ParticipantID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant_id"})
		return
	}

	detectedAt := time.Now()
	if request.DetectedAt != "" {
		parsed, err := time.Parse(time.RFC3339, request.DetectedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "detected_at must be RFC3339"})
			return
		}
		detectedAt = parsed
	}

	depositLog := models.DepositLog{
		ParticipantID: participant.ID,
		WalletAddress: participant.WalletAddress,
		AmountSol:     request.AmountSol,
		Signature:     request.Signature,
		DetectedAt:    detectedAt,
	}

	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&depositLog).Error; err != nil {
			return err
		}
		return tx.Model(&models.Participant{}).
			Where("id = ?", participant.ID).
			Update("total_deposit", gorm.Expr("total_deposit + ?", request.AmountSol)).Error
	})
	if err != nil {
		// Unique index on signature catches duplicate detections; any
		// other failure is the store's fault, not the caller's
		if status := createStatus(err); status == http.StatusConflict {
			c.JSON(status, gin.H{"error": "Deposit already recorded"})
		} else {
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	log.Infof("> recorded %.4f SOL deposit for participant %d (sig %s)", request.AmountSol, participant.ID, request.Signature)

	publishArenaEvent(leaderboard.ArenaEvent{
		Action:        leaderboard.EventDepositDetected,
		ArenaID:       participant.ArenaID,
		ParticipantID: participant.ID,
		WalletAddress: participant.WalletAddress,
	})

	c.JSON(http.StatusCreated, depositLog)
}
