package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradehub/internal/leaderboard"
	"tradehub/internal/models"
	dbconfig "tradehub/pkg/config"
)

// GetLeaderboard serves the current standings of an arena. Ordering comes
// from the store, which the sync worker keeps refreshed; ties fall back
// to join order so repeated reads stay deterministic.
func GetLeaderboard(c *gin.Context) {
	arenaID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var arena models.Arena
	if err := dbconfig.DB.First(&arena, arenaID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Arena not found"})
		return
	}

	var participants []models.Participant
	if err := dbconfig.DB.Where("arena_id = ?", arenaID).
		Order("profit desc, created_at asc").
		Find(&participants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"arena":        arena,
		"participants": participants,
		"is_live":      arena.IsLive(time.Now()),
	})
}

// TriggerResync asks the sync worker for an immediate full resync of an
// arena. The worker's single-flight guard drops overlapping requests, and
// its periodic resync covers whatever was dropped.
func TriggerResync(c *gin.Context) {
	arenaID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var arena models.Arena
	if err := dbconfig.DB.First(&arena, arenaID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Arena not found"})
		return
	}

	publishArenaEvent(leaderboard.ArenaEvent{
		Action:  leaderboard.EventResyncRequested,
		ArenaID: arena.ID,
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "resync requested"})
}
