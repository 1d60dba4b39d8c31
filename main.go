package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"marbles/cmd"
	"marbles/config"
	"marbles/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		cmd.PrintUsage(os.Stdout)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.ConfigureLogging()

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(cfg, os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Migration error")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func handleMigrationCommand(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: marbles migrate [up|down|status] [args...]")
	}

	databaseURL := cfg.DatabaseConnectionURL()
	switch args[0] {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := 1
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed < 1 {
				return fmt.Errorf("invalid step count: %s", args[1])
			}
			steps = parsed
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		status, err := database.MigrateStatus(databaseURL)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"version": status.Version,
			"dirty":   status.Dirty,
			"applied": status.Applied,
		}).Info("Migration status")
		return nil
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
