// internal/services/royalty_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/models"
)

type RoyaltyServiceSuite struct {
	suite.Suite
	db         *gorm.DB
	assets     *AssetService
	treasury   *TreasuryService
	royalties  *RoyaltyService
	original   *models.Asset
	derivative *models.Asset
	origUser   *models.User
	derivUser  *models.User
}

func (suite *RoyaltyServiceSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.assets = NewAssetService(suite.db)
	suite.treasury = NewTreasuryService(suite.db)
	suite.royalties = NewRoyaltyService(suite.db, suite.assets, suite.treasury)

	suite.origUser = newTestUser(suite.T(), suite.db, models.UserTypeCreator)
	suite.derivUser = newTestUser(suite.T(), suite.db, models.UserTypeCreator)

	original, err := suite.assets.Register(suite.origUser.ID, &RegisterAssetRequest{
		ContentRef:  "models/base.stl",
		MetadataRef: "meta:base",
	})
	suite.Require().NoError(err)
	suite.original = original

	derivative, err := suite.assets.Register(suite.derivUser.ID, &RegisterAssetRequest{
		ContentRef:  "models/remix.stl",
		MetadataRef: "meta:remix",
	})
	suite.Require().NoError(err)
	suite.derivative = derivative

	fundWallet(suite.T(), suite.db, suite.treasury, suite.derivUser.ID, 10000)
}

func (suite *RoyaltyServiceSuite) configure(bps uint32) *models.DerivativeRoyalty {
	entry, err := suite.royalties.SetDerivativeRoyalty(suite.derivUser.ID, &SetDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		OriginalAssetID:   suite.original.ID,
		RoyaltyBps:        bps,
	})
	suite.Require().NoError(err)
	return entry
}

func (suite *RoyaltyServiceSuite) TestSetDerivativeRoyalty() {
	entry := suite.configure(1000)

	suite.Equal(suite.origUser.ID, entry.OriginalCreatorID)
	suite.True(entry.Active)

	// The original's derivative counter moves with the linkage.
	reloaded, err := suite.assets.GetAsset(suite.original.ID)
	suite.Require().NoError(err)
	suite.EqualValues(1, reloaded.DerivativeCount)
}

func (suite *RoyaltyServiceSuite) TestSetDerivativeRoyaltyRejections() {
	// Cap.
	_, err := suite.royalties.SetDerivativeRoyalty(suite.derivUser.ID, &SetDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		OriginalAssetID:   suite.original.ID,
		RoyaltyBps:        models.MaxRoyaltyBps + 1,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))

	// Only the derivative's creator configures it.
	_, err = suite.royalties.SetDerivativeRoyalty(suite.origUser.ID, &SetDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		OriginalAssetID:   suite.original.ID,
		RoyaltyBps:        500,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))

	// One entry per derivative.
	suite.configure(500)
	_, err = suite.royalties.SetDerivativeRoyalty(suite.derivUser.ID, &SetDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		OriginalAssetID:   suite.original.ID,
		RoyaltyBps:        500,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *RoyaltyServiceSuite) TestPayDerivativeRoyalty() {
	suite.configure(1000)

	// Tendered amount must match the declared sale price.
	_, err := suite.royalties.PayDerivativeRoyalty(suite.derivUser.ID, &PayDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		SalePrice:         300,
		PaidAmount:        299,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))

	paid, err := suite.royalties.PayDerivativeRoyalty(suite.derivUser.ID, &PayDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		SalePrice:         300,
		PaidAmount:        300,
	})
	suite.Require().NoError(err)
	suite.EqualValues(30, paid)

	// The share accrues to the original creator's claimable balance; the
	// remainder never leaves the payer's wallet.
	claimable, err := suite.royalties.ClaimableBalance(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(30, claimable)

	payerBalance, err := suite.treasury.Balance(suite.derivUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(10000-30, payerBalance)
}

func (suite *RoyaltyServiceSuite) TestPayDerivativeRoyaltyRejectsNonpositivePrice() {
	suite.configure(1000)

	// A zero or negative sale price never settles, even with matching
	// tender; a zero-amount payment row must not reach the history.
	for _, price := range []int64{0, -5} {
		_, err := suite.royalties.PayDerivativeRoyalty(suite.derivUser.ID, &PayDerivativeRoyaltyRequest{
			DerivativeAssetID: suite.derivative.ID,
			SalePrice:         price,
			PaidAmount:        price,
		})
		suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))
	}

	history, err := suite.royalties.PaymentHistory(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.Empty(history)

	claimable, err := suite.royalties.ClaimableBalance(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(0, claimable)
}

func (suite *RoyaltyServiceSuite) TestPayDerivativeRoyaltyUnconfigured() {
	_, err := suite.royalties.PayDerivativeRoyalty(suite.derivUser.ID, &PayDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		SalePrice:         300,
		PaidAmount:        300,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *RoyaltyServiceSuite) TestDeactivationStopsPayments() {
	suite.configure(1000)
	suite.Require().NoError(suite.royalties.DeactivateDerivativeRoyalty(suite.derivative.ID))

	_, err := suite.royalties.PayDerivativeRoyalty(suite.derivUser.ID, &PayDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		SalePrice:         300,
		PaidAmount:        300,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))

	// History survives deactivation.
	entry, err := suite.royalties.GetDerivativeRoyalty(suite.derivative.ID)
	suite.Require().NoError(err)
	suite.False(entry.Active)
}

func (suite *RoyaltyServiceSuite) TestPayDirectRoyalty() {
	err := suite.royalties.PayDirectRoyalty(suite.derivUser.ID, &PayDirectRoyaltyRequest{
		CreatorID: suite.derivUser.ID,
		Amount:    50,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument)) // self-tip

	err = suite.royalties.PayDirectRoyalty(suite.derivUser.ID, &PayDirectRoyaltyRequest{
		CreatorID: uuid.New(),
		Amount:    50,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindNotFound)) // unknown recipient

	err = suite.royalties.PayDirectRoyalty(suite.derivUser.ID, &PayDirectRoyaltyRequest{
		CreatorID: suite.origUser.ID,
		Amount:    50,
		Message:   "great base model",
	})
	suite.Require().NoError(err)

	claimable, err := suite.royalties.ClaimableBalance(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(50, claimable)

	history, err := suite.royalties.PaymentHistory(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.Require().Len(history, 1)
	suite.Equal("great base model", history[0].Message)
	suite.Equal(models.PaymentKindDirect, history[0].Kind)
}

func (suite *RoyaltyServiceSuite) TestClaimRoyalties() {
	suite.Require().NoError(suite.royalties.PayDirectRoyalty(suite.derivUser.ID, &PayDirectRoyaltyRequest{
		CreatorID: suite.origUser.ID,
		Amount:    75,
	}))

	claimed, err := suite.royalties.ClaimRoyalties(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(75, claimed)

	// Claimed funds land in the wallet; the claimable balance is drained.
	balance, err := suite.treasury.Balance(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(75, balance)

	claimable, err := suite.royalties.ClaimableBalance(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(0, claimable)

	// Nothing left for a second claim.
	_, err = suite.royalties.ClaimRoyalties(suite.origUser.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindNothingToClaim))
}

func (suite *RoyaltyServiceSuite) TestTotalEarned() {
	suite.configure(1000)

	_, err := suite.royalties.PayDerivativeRoyalty(suite.derivUser.ID, &PayDerivativeRoyaltyRequest{
		DerivativeAssetID: suite.derivative.ID,
		SalePrice:         300,
		PaidAmount:        300,
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.royalties.PayDirectRoyalty(suite.derivUser.ID, &PayDirectRoyaltyRequest{
		CreatorID: suite.origUser.ID,
		Amount:    20,
	}))

	total, err := suite.royalties.TotalEarned(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.EqualValues(50, total)

	history, err := suite.royalties.PaymentHistory(suite.origUser.ID)
	suite.Require().NoError(err)
	suite.Require().Len(history, 2)
	suite.Equal(models.PaymentKindDerivative, history[0].Kind)
	suite.Equal(models.PaymentKindDirect, history[1].Kind)
}

func TestRoyaltyServiceSuite(t *testing.T) {
	suite.Run(t, new(RoyaltyServiceSuite))
}
