package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kendall-kelly/av-pipeline-api/config"
	"github.com/kendall-kelly/av-pipeline-api/controllers"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// It fails the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	RequireTestEnvironment(t)
}

// TestConfig returns a configuration for suites: local storage below dir, reject stage
// policy, US phone numbers and auth disabled.
func TestConfig(dir string) *config.Config {
	return &config.Config{
		GoEnv:               "test",
		DBDriver:            config.DriverSQLite,
		DatabaseURL:         filepath.Join(dir, "test.db"),
		ServiceName:         "av-pipeline-api-test",
		StorageProvider:     config.StorageLocal,
		UploadDir:           filepath.Join(dir, "uploads"),
		MaxUploadSizeMB:     1,
		StageFallbackPolicy: "reject",
		DefaultPhoneRegion:  "US",
		CORSAllowedOrigins:  []string{"*"},
	}
}

// SetupDatabase opens a sqlite database at cfg.DatabaseURL, migrates it and installs it as
// the global database. It also registers the request validators the controllers rely on.
func SetupDatabase(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	require.NoError(t, controllers.RegisterValidators())

	config.SetDB(db)
	config.SetConfig(cfg)
	return db
}

// ResetDatabase removes every row so each test starts from an empty board
func ResetDatabase(db *gorm.DB) {
	db.Exec("DELETE FROM documents")
	db.Exec("DELETE FROM integration_details")
	db.Exec("DELETE FROM cards")
	db.Exec("DELETE FROM customers")
}

// CloseDatabase closes the underlying connection pool
func CloseDatabase(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
