package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradehub/internal/models"
	dbconfig "tradehub/pkg/config"
	hubsolana "tradehub/pkg/solana"
)

// ListRpcConfigs returns a list of all RPC configurations
func ListRpcConfigs(c *gin.Context) {
	var configs []models.RpcConfig
	if err := dbconfig.DB.Order("priority asc").Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, configs)
}

// RpcConfigRequest represents the request body for creating/updating an RPC configuration
type RpcConfigRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	IsActive bool   `json:"is_active"`
	Priority int    `json:"priority"`
}

// CreateRpcConfig creates a new RPC configuration
func CreateRpcConfig(c *gin.Context) {
	var request RpcConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config := models.RpcConfig{
		Endpoint: request.Endpoint,
		IsActive: request.IsActive,
		Priority: request.Priority,
	}

	if err := dbconfig.DB.Create(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	reloadChainReaderEndpoints()
	c.JSON(http.StatusCreated, config)
}

// UpdateRpcConfig updates an existing RPC configuration
func UpdateRpcConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var config models.RpcConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	var request RpcConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config.Endpoint = request.Endpoint
	config.IsActive = request.IsActive
	config.Priority = request.Priority

	if err := dbconfig.DB.Save(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	reloadChainReaderEndpoints()
	c.JSON(http.StatusOK, config)
}

// DeleteRpcConfig deletes an RPC configuration
func DeleteRpcConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := dbconfig.DB.Delete(&models.RpcConfig{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	reloadChainReaderEndpoints()
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted"})
}

// CheckRpcEndpoints probes every active endpoint and reports health and latency
func CheckRpcEndpoints(c *gin.Context) {
	var configs []models.RpcConfig
	if err := dbconfig.DB.Where("is_active = ?", true).Order("priority asc").Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	endpoints := hubsolana.EndpointsFromEnv()
	for _, cfg := range configs {
		endpoints = append(endpoints, cfg.Endpoint)
	}
	endpoints = hubsolana.DedupEndpoints(endpoints)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results := hubsolana.CheckRPCListAsync(ctx, endpoints, 3*time.Second)
	c.JSON(http.StatusOK, results)
}
