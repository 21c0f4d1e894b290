package services

import (
	"testing"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/test/util"
)

// testConfig returns the default tuning used across service tests.
func testConfig() *config.Config {
	return &config.Config{
		QueryWeightRole:      0.45,
		QueryWeightUser:      0.35,
		QueryWeightPhase:     0.20,
		UserEmbedAlpha:       0.90,
		UserDecayDays:        14,
		UserDecayBlend:       0.05,
		RetrievalWindowHours: 24,
		Queue:                config.DefaultQueueConfig(),
	}
}

// newTestStore creates a store over a fresh in-memory database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(util.SetupTestDatabase(t))
}
