package main

import (
	"log"
	"os"

	"tradehub/internal/routes"
	"tradehub/pkg/config"
)

func main() {
	// Initialize database
	config.InitDB()

	// SQL migrations on top of AutoMigrate, opt-in for deployments that
	// manage the schema explicitly
	if os.Getenv("RUN_MIGRATIONS") == "true" {
		config.ExecuteMigrations()
	}

	// Initialize RabbitMQ (optional, events are skipped if not configured)
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()
		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, skipping initialization")
	}

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
