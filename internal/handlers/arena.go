package handlers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tradehub/internal/leaderboard"
	"tradehub/internal/models"
	dbconfig "tradehub/pkg/config"
	hubsolana "tradehub/pkg/solana"
)

// ListArenas returns all arenas
func ListArenas(c *gin.Context) {
	var arenas []models.Arena
	if err := dbconfig.DB.Order("start_time desc").Find(&arenas).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, arenas)
}

// GetArena returns a specific arena by ID
func GetArena(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var arena models.Arena
	if err := dbconfig.DB.First(&arena, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, arena)
}

// ArenaRequest represents the request body for creating an arena
type ArenaRequest struct {
	Title             string    `json:"title" binding:"required"`
	MinBalance        float64   `json:"min_balance"`
	StartTime         time.Time `json:"start_time" binding:"required"`
	EndTime           time.Time `json:"end_time" binding:"required"`
	AccessType        string    `json:"access_type"`
	RewardTokenAmount float64   `json:"reward_token_amount"`
}

// CreateArena creates a new arena together with its escrow wallet
func CreateArena(c *gin.Context) {
	var request ArenaRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !request.EndTime.After(request.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
		return
	}

	accessType := models.ArenaAccessType(request.AccessType)
	switch accessType {
	case models.AccessPublic, models.AccessPrivate, models.AccessWhitelist:
	case "":
		accessType = models.AccessPublic
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid access_type"})
		return
	}

	// The reward pool lives in a dedicated escrow wallet per arena
	km := hubsolana.NewKeyManager(os.Getenv("ESCROW_KEYSTORE_DIR"))
	escrow, err := km.GenerateEscrowWallet()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate escrow wallet"})
		return
	}
	if err := km.SaveKeyStoreEntry(escrow, os.Getenv("ESCROW_KEYSTORE_PASSWORD")); err != nil {
		log.Errorf("> failed to persist escrow keystore entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save escrow wallet"})
		return
	}

	arena := models.Arena{
		Title:              request.Title,
		MinBalance:         request.MinBalance,
		StartTime:          request.StartTime,
		EndTime:            request.EndTime,
		AccessType:         accessType,
		RewardTokenAmount:  request.RewardTokenAmount,
		DistributionStatus: models.DistributionPending,
		EscrowAddress:      escrow.PublicKey.ToBase58(),
	}

	if err := dbconfig.DB.Create(&arena).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	publishArenaEvent(leaderboard.ArenaEvent{
		Action:  leaderboard.EventStartSync,
		ArenaID: arena.ID,
	})

	c.JSON(http.StatusCreated, arena)
}

// DistributionStatusRequest represents the request body for updating
// an arena's distribution status
type DistributionStatusRequest struct {
	DistributionStatus string `json:"distribution_status" binding:"required"`
}

// UpdateDistributionStatus moves an arena through the reward distribution
// lifecycle. The payout transactions themselves run elsewhere.
func UpdateDistributionStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request DistributionStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.DistributionStatus(request.DistributionStatus)
	switch status {
	case models.DistributionPending, models.DistributionProcessing,
		models.DistributionDistributed, models.DistributionFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid distribution_status"})
		return
	}

	var arena models.Arena
	if err := dbconfig.DB.First(&arena, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	arena.DistributionStatus = status
	if err := dbconfig.DB.Save(&arena).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if status == models.DistributionDistributed {
		publishArenaEvent(leaderboard.ArenaEvent{
			Action:  leaderboard.EventStopSync,
			ArenaID: arena.ID,
		})
	}

	c.JSON(http.StatusOK, arena)
}
