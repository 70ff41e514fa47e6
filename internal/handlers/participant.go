package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tradehub/internal/leaderboard"
	"tradehub/internal/models"
	dbconfig "tradehub/pkg/config"
)

// ListParticipants returns all participants of an arena
func ListParticipants(c *gin.Context) {
	arenaID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var participants []models.Participant
	if err := dbconfig.DB.Where("arena_id = ?", arenaID).Order("created_at asc").Find(&participants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, participants)
}

// RegisterParticipantRequest represents the request body for joining an arena
type RegisterParticipantRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// RegisterParticipant registers a wallet into an arena. The on-chain
// balance is snapshotted at this moment and becomes the immutable
// baseline for the clean-ROI computation.
func RegisterParticipant(c *gin.Context) {
	arenaID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request RegisterParticipantRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := solana.PublicKeyFromBase58(request.WalletAddress); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	var arena models.Arena
	if err := dbconfig.DB.First(&arena, arenaID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Arena not found"})
		return
	}

	now := time.Now()
	if now.After(arena.EndTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Arena has already ended"})
		return
	}

	var existing models.Participant
	err = dbconfig.DB.Where("arena_id = ? AND wallet_address = ?", arenaID, request.WalletAddress).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Wallet already registered in this arena"})
		return
	}

	// Baseline snapshot. Registration is refused when no endpoint can
	// observe the balance: a guessed baseline would poison every later
	// ROI computation.
	balance, ok := getChainReader().GetBalance(c.Request.Context(), request.WalletAddress)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to read wallet balance, try again later"})
		return
	}

	if balance < arena.MinBalance {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Balance below arena minimum",
			"min_balance": arena.MinBalance,
			"balance":     balance,
		})
		return
	}

	participant := models.Participant{
		ArenaID:        uint(arenaID),
		WalletAddress:  request.WalletAddress,
		InitialBalance: balance,
		CurrentBalance: balance,
	}

	if err := dbconfig.DB.Create(&participant).Error; err != nil {
		// Concurrent joins race past the pre-check; the unique index on
		// (arena_id, wallet_address) catches the loser here.
		if status := createStatus(err); status == http.StatusConflict {
			c.JSON(status, gin.H{"error": "Wallet already registered in this arena"})
		} else {
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	log.Infof("> participant %d joined arena %d with baseline %.4f SOL", participant.ID, arenaID, balance)

	publishArenaEvent(leaderboard.ArenaEvent{
		Action:        leaderboard.EventParticipantJoined,
		ArenaID:       uint(arenaID),
		ParticipantID: participant.ID,
		WalletAddress: participant.WalletAddress,
	})

	c.JSON(http.StatusCreated, participant)
}
