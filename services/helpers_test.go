package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "services.db")), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// newSalesCard returns an unsaved sales card for customerID
func newSalesCard(t *testing.T, customerID, title string, estimate string) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(domain.TypeSales)
	require.NoError(t, err)
	card.CustomerID = customerID
	card.ProjectNumber = "P-200"
	card.Title = title
	card.Sales.EstimateValue = decimal.RequireFromString(estimate)
	return card
}

// createAtStage stores a sales card and moves it to stage
func createAtStage(t *testing.T, cards *CardService, customerID, title string, stage domain.Stage) *domain.Card {
	t.Helper()
	ctx := context.Background()
	created, err := cards.Create(ctx, newSalesCard(t, customerID, title, "10000"))
	require.NoError(t, err)
	if stage == "" || stage == created.Stage {
		return created
	}
	moved, err := cards.MoveStage(ctx, created.ID, domain.TypeSales, string(stage))
	require.NoError(t, err)
	return moved
}

// failOn makes every create of a row accepted by match fail with the given error
func failOn(t *testing.T, db *gorm.DB, name string, match func(dest interface{}) bool, err error) {
	t.Helper()
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if match(tx.Statement.Dest) {
			tx.AddError(err)
		}
	}))
	t.Cleanup(func() {
		db.Callback().Create().Remove(name)
	})
}

// failOnUpdate makes every update whose changes are accepted by match fail with the given error
func failOnUpdate(t *testing.T, db *gorm.DB, name string, match func(dest interface{}) bool, err error) {
	t.Helper()
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if match(tx.Statement.Dest) {
			tx.AddError(err)
		}
	}))
	t.Cleanup(func() {
		db.Callback().Update().Remove(name)
	})
}
