package db

import (
	"github.com/rs/zerolog/log"

	"onboarding-hub/internal/state"
)

// Migrate runs database migrations
func Migrate() error {
	err := AppDb.AutoMigrate(
		&state.StateSnapshot{},
	)
	if err != nil {
		return err
	}

	log.Info().Msg("database schema migrated successfully")
	return nil
}
