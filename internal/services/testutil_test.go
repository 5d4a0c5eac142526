// internal/services/testutil_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
// A single connection keeps every query on the same in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, database.RunMigrations(db))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, userType models.UserType) *models.User {
	t.Helper()

	tag := uuid.New().String()[:8]
	user := &models.User{
		Username: fmt.Sprintf("user_%s", tag),
		Email:    fmt.Sprintf("%s@example.com", tag),
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func fundWallet(t *testing.T, db *gorm.DB, treasury *TreasuryService, userID uuid.UUID, amount int64) {
	t.Helper()

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		return treasury.Credit(tx, userID, amount, models.WalletEntryDeposit, "test funding")
	})
	require.NoError(t, err)
}
