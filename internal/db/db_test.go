package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"onboarding-hub/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{
		DBHost:     "db.internal",
		DBPort:     "6543",
		DBUser:     "hub",
		DBPassword: "secret",
		DBName:     "onboarding_hub",
	}

	assert.Equal(t,
		"host=db.internal user=hub password=secret dbname=onboarding_hub port=6543 sslmode=disable",
		dsn(cfg),
	)
}

func TestCloseDb_WithoutConnection(t *testing.T) {
	AppDb = nil
	assert.NotPanics(t, CloseDb)
}
