package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/database"
	"github.com/nfrund/smartshop/internal/logging"
	"github.com/stretchr/testify/require"
)

// ConfigForTests loads the project's .env.test, when there is one, into the
// test's environment and returns a config backed by the memory store.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	// Find project root by looking for go.mod to reliably locate .env.test
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("failed to load .env.test file: %v", err)
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
	t.Setenv("STORE_DRIVER", config.DriverMemory)

	logging.New()

	cfg := config.FromEnv()
	require.NoError(t, cfg.Validate())
	return cfg
}

// SeededStore returns a memory store holding the admin from cfg and the
// starting catalogue.
func SeededStore(t testing.TB, cfg config.Provider) *database.MemoryStore {
	t.Helper()
	store := database.NewMemoryStore()
	_, err := database.Seed(context.Background(), store, cfg)
	require.NoError(t, err)
	return store
}
