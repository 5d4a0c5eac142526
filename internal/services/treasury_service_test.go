// internal/services/treasury_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
)

type TreasuryServiceSuite struct {
	suite.Suite
	db       *gorm.DB
	treasury *TreasuryService
	user     *models.User
}

func (suite *TreasuryServiceSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.treasury = NewTreasuryService(suite.db)
	suite.user = newTestUser(suite.T(), suite.db, models.UserTypeBuyer)
}

func (suite *TreasuryServiceSuite) TestCreditAndDebit() {
	fundWallet(suite.T(), suite.db, suite.treasury, suite.user.ID, 500)

	balance, err := suite.treasury.Balance(suite.user.ID)
	suite.Require().NoError(err)
	suite.EqualValues(500, balance)

	err = database.WithTransaction(suite.db, func(tx *gorm.DB) error {
		return suite.treasury.Debit(tx, suite.user.ID, 200, models.WalletEntryPurchase, "test")
	})
	suite.Require().NoError(err)

	balance, err = suite.treasury.Balance(suite.user.ID)
	suite.Require().NoError(err)
	suite.EqualValues(300, balance)
}

func (suite *TreasuryServiceSuite) TestDebitShortBalance() {
	fundWallet(suite.T(), suite.db, suite.treasury, suite.user.ID, 100)

	err := database.WithTransaction(suite.db, func(tx *gorm.DB) error {
		return suite.treasury.Debit(tx, suite.user.ID, 101, models.WalletEntryPurchase, "test")
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInsufficientPayment))

	// The failed transaction leaves the balance untouched.
	balance, err := suite.treasury.Balance(suite.user.ID)
	suite.Require().NoError(err)
	suite.EqualValues(100, balance)
}

func (suite *TreasuryServiceSuite) TestEmptyWalletReadsZero() {
	other := newTestUser(suite.T(), suite.db, models.UserTypeBuyer)

	balance, err := suite.treasury.Balance(other.ID)
	suite.Require().NoError(err)
	suite.EqualValues(0, balance)
}

func (suite *TreasuryServiceSuite) TestHistoryNewestFirst() {
	fundWallet(suite.T(), suite.db, suite.treasury, suite.user.ID, 500)

	err := database.WithTransaction(suite.db, func(tx *gorm.DB) error {
		return suite.treasury.Debit(tx, suite.user.ID, 50, models.WalletEntryPurchase, "license:1")
	})
	suite.Require().NoError(err)

	entries, err := suite.treasury.History(suite.user.ID, 10)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 2)
	suite.EqualValues(-50, entries[0].Amount)
	suite.EqualValues(500, entries[1].Amount)
}

func TestTreasuryServiceSuite(t *testing.T) {
	suite.Run(t, new(TreasuryServiceSuite))
}
