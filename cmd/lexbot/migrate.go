package main

import (
	"fmt"

	"github.com/lexbotdev/lexbot/internal/config"
	"github.com/lexbotdev/lexbot/internal/db"
)

func runMigrate() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := db.Migrate(cfg.Postgres); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}
