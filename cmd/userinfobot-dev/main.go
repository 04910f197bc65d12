package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/testcontainers/testcontainers-go"
	postgresTC "github.com/testcontainers/testcontainers-go/modules/postgres"

	"userinfobot/internal/app"
)

func main() {
	ctx := context.Background()

	log.Println("Starting PostgreSQL testcontainer...")

	// Start PostgreSQL container
	container, err := postgresTC.Run(ctx,
		"postgres:16-alpine",
		postgresTC.WithDatabase("bot"),
		postgresTC.WithUsername("bot"),
		postgresTC.WithPassword("devpassword"),
		postgresTC.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping PostgreSQL container...")
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("Failed to get connection string: %v", err)
	}
	log.Println("PostgreSQL started")

	// Set environment variables for the application
	os.Setenv("DATABASE_URL", dsn)
	os.Setenv("WEBHOOK_MODE", "false")
	os.Setenv("LOG_DEV", "true")

	// Ensure BOT_TOKEN and OWNER_ID are set
	if os.Getenv("BOT_TOKEN") == "" {
		log.Println("⚠️  BOT_TOKEN not set. Please set it in your .env file or environment.")
		log.Println("   The bot will fail to start without a valid token.")
	}
	if os.Getenv("OWNER_ID") == "" {
		log.Println("⚠️  OWNER_ID not set. Please set it in your .env file or environment.")
		log.Println("   The bot will fail to start without an owner.")
	}

	log.Println("Starting application with PostgreSQL backend...")
	fmt.Println()

	// Create and initialize application
	application, err := app.New(ctx)
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT or SIGTERM
	if err := application.Run(ctx); err != nil {
		log.Printf("Application error: %v", err)
	}
}
