// internal/services/license_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/models"
)

type LicenseServiceSuite struct {
	suite.Suite
	db       *gorm.DB
	assets   *AssetService
	pricing  *PricingService
	treasury *TreasuryService
	licenses *LicenseService
	creator  *models.User
	buyer    *models.User
	royalist *models.User
	asset    *models.Asset
}

func (suite *LicenseServiceSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.assets = NewAssetService(suite.db)
	suite.pricing = NewPricingService(suite.db, suite.assets)
	suite.treasury = NewTreasuryService(suite.db)
	suite.licenses = NewLicenseService(suite.db, suite.assets, suite.pricing, suite.treasury)

	suite.creator = newTestUser(suite.T(), suite.db, models.UserTypeCreator)
	suite.buyer = newTestUser(suite.T(), suite.db, models.UserTypeBuyer)
	suite.royalist = newTestUser(suite.T(), suite.db, models.UserTypeCreator)

	asset, err := suite.assets.Register(suite.creator.ID, &RegisterAssetRequest{
		ContentRef:  "models/figurine.stl",
		MetadataRef: "meta:figurine",
	})
	suite.Require().NoError(err)
	suite.asset = asset

	fundWallet(suite.T(), suite.db, suite.treasury, suite.buyer.ID, 10000)
}

// putUpForSale configures one tier and opens the sale gate.
func (suite *LicenseServiceSuite) putUpForSale(tier models.LicenseTier, price, duration int64) {
	suite.Require().NoError(suite.pricing.SetLicenseConfig(suite.asset.ID, suite.creator.ID, &LicenseConfigRequest{
		Tiers: []TierConfigInput{{Tier: tier, Price: price, Duration: duration}},
	}))
	_, err := suite.pricing.ToggleForSale(suite.asset.ID, suite.creator.ID)
	suite.Require().NoError(err)
}

func (suite *LicenseServiceSuite) purchase(tier models.LicenseTier, paid int64) *models.LicenseRecord {
	record, err := suite.licenses.Purchase(suite.buyer.ID, &PurchaseRequest{
		AssetID:    suite.asset.ID,
		Tier:       tier,
		PaidAmount: paid,
	})
	suite.Require().NoError(err)
	return record
}

func (suite *LicenseServiceSuite) TestPurchaseSnapshotsTermsAndExpiry() {
	const day = int64(86400)
	suite.putUpForSale(models.TierIndie, 300, 30*day)
	suite.Require().NoError(suite.pricing.SetRoyalty(suite.asset.ID, suite.royalist.ID, 1000, suite.creator.ID))

	before := time.Now().Unix()
	record := suite.purchase(models.TierIndie, 300)
	after := time.Now().Unix()

	suite.Equal(suite.buyer.ID, record.OwnerID)
	suite.Equal("meta:figurine", record.MetadataRef)
	suite.EqualValues(1000, record.RoyaltyBps)
	suite.Require().NotNil(record.RoyaltyRecipientID)
	suite.Equal(suite.royalist.ID, *record.RoyaltyRecipientID)
	suite.Equal(30*day, record.Duration)

	suite.GreaterOrEqual(record.ExpiresAt, before+30*day)
	suite.LessOrEqual(record.ExpiresAt, after+30*day)
}

func (suite *LicenseServiceSuite) TestPurchaseDistribution() {
	// 300 credits at 1000 bps: 30 to the royalty recipient, 270 to the creator.
	suite.putUpForSale(models.TierIndie, 300, 0)
	suite.Require().NoError(suite.pricing.SetRoyalty(suite.asset.ID, suite.royalist.ID, 1000, suite.creator.ID))

	suite.purchase(models.TierIndie, 300)

	buyerBalance, err := suite.treasury.Balance(suite.buyer.ID)
	suite.Require().NoError(err)
	suite.EqualValues(10000-300, buyerBalance)

	royaltyBalance, err := suite.treasury.Balance(suite.royalist.ID)
	suite.Require().NoError(err)
	suite.EqualValues(30, royaltyBalance)

	creatorBalance, err := suite.treasury.Balance(suite.creator.ID)
	suite.Require().NoError(err)
	suite.EqualValues(270, creatorBalance)
}

func (suite *LicenseServiceSuite) TestPurchaseUnderpaid() {
	suite.putUpForSale(models.TierIndie, 300, 0)

	_, err := suite.licenses.Purchase(suite.buyer.ID, &PurchaseRequest{
		AssetID:    suite.asset.ID,
		Tier:       models.TierIndie,
		PaidAmount: 299,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInsufficientPayment))
}

func (suite *LicenseServiceSuite) TestPurchaseNotForSale() {
	_, err := suite.licenses.Purchase(suite.buyer.ID, &PurchaseRequest{
		AssetID:    suite.asset.ID,
		Tier:       models.TierIndie,
		PaidAmount: 300,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindUnavailable))
}

func (suite *LicenseServiceSuite) TestPurchaseSupplyExhaustion() {
	suite.putUpForSale(models.TierPersonal, 10, 0)
	suite.Require().NoError(suite.pricing.SetMaxSupply(suite.asset.ID, 1, suite.creator.ID))

	suite.purchase(models.TierPersonal, 10)

	_, err := suite.licenses.Purchase(suite.buyer.ID, &PurchaseRequest{
		AssetID:    suite.asset.ID,
		Tier:       models.TierPersonal,
		PaidAmount: 10,
	})
	suite.True(apperrors.IsKind(err, apperrors.KindUnavailable))
}

func (suite *LicenseServiceSuite) TestBurnIsTerminal() {
	suite.putUpForSale(models.TierPersonal, 10, 0)
	record := suite.purchase(models.TierPersonal, 10)

	// Only the owner may burn.
	_, err := suite.licenses.BurnForDownload(record.ID, suite.creator.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))

	key, err := suite.licenses.BurnForDownload(record.ID, suite.buyer.ID)
	suite.Require().NoError(err)
	suite.Len(key, 64)

	// A second burn fails and the first key stays put.
	_, err = suite.licenses.BurnForDownload(record.ID, suite.buyer.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))

	reloaded, err := suite.licenses.GetRecord(record.ID)
	suite.Require().NoError(err)
	suite.True(reloaded.Burned)
	suite.Equal(key, reloaded.DownloadKey)

	// Burned records cannot transfer.
	_, err = suite.licenses.Transfer(record.ID, suite.buyer.ID, suite.creator.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *LicenseServiceSuite) TestRenewAddsExactlySnapshottedDuration() {
	const day = int64(86400)
	suite.putUpForSale(models.TierIndie, 300, 30*day)
	record := suite.purchase(models.TierIndie, 300)

	oldExpiry := record.ExpiresAt
	newExpiry, err := suite.licenses.Renew(record.ID, 300, suite.buyer.ID)
	suite.Require().NoError(err)
	suite.Equal(oldExpiry+30*day, newExpiry)

	// Raising the current price raises the renewal bar; the paid amount is
	// checked against the price now in force.
	suite.Require().NoError(suite.pricing.SetLicensePrice(suite.asset.ID, models.TierIndie, 500, suite.creator.ID))
	_, err = suite.licenses.Renew(record.ID, 300, suite.buyer.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInsufficientPayment))
}

func (suite *LicenseServiceSuite) TestPerpetualIsNotRenewable() {
	suite.putUpForSale(models.TierPersonal, 10, 0)
	record := suite.purchase(models.TierPersonal, 10)

	suite.True(record.IsPerpetual())

	_, err := suite.licenses.Renew(record.ID, 10, suite.buyer.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *LicenseServiceSuite) TestTransfer() {
	suite.putUpForSale(models.TierPersonal, 10, 0)
	record := suite.purchase(models.TierPersonal, 10)

	// Only the current owner moves the record.
	_, err := suite.licenses.Transfer(record.ID, suite.creator.ID, suite.royalist.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))

	moved, err := suite.licenses.Transfer(record.ID, suite.buyer.ID, suite.royalist.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.royalist.ID, moved.OwnerID)
}

func (suite *LicenseServiceSuite) TestValidityAndTimeRemaining() {
	suite.putUpForSale(models.TierPersonal, 10, 0)
	perpetual := suite.purchase(models.TierPersonal, 10)

	valid, err := suite.licenses.IsLicenseValid(perpetual.ID)
	suite.Require().NoError(err)
	suite.True(valid)

	remaining, err := suite.licenses.TimeRemaining(perpetual.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TimeRemainingUnbounded, remaining)

	// An already-lapsed record reports invalid with zero time left.
	expired := &models.LicenseRecord{
		AssetID:   suite.asset.ID,
		OwnerID:   suite.buyer.ID,
		Tier:      models.TierPersonal,
		PricePaid: 10,
		ExpiresAt: time.Now().Unix() - 100,
		Duration:  60,
	}
	suite.Require().NoError(suite.db.Create(expired).Error)

	valid, err = suite.licenses.IsLicenseValid(expired.ID)
	suite.Require().NoError(err)
	suite.False(valid)

	remaining, err = suite.licenses.TimeRemaining(expired.ID)
	suite.Require().NoError(err)
	suite.EqualValues(0, remaining)

	_, err = suite.licenses.BurnForDownload(expired.ID, suite.buyer.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *LicenseServiceSuite) TestSoldCountTracksIssuance() {
	suite.putUpForSale(models.TierPersonal, 10, 0)
	suite.purchase(models.TierPersonal, 10)
	suite.purchase(models.TierPersonal, 10)

	pricing, err := suite.pricing.GetPricing(suite.asset.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(pricing.SaleConfig)
	suite.EqualValues(2, pricing.SaleConfig.SoldCount)
}

func TestLicenseServiceSuite(t *testing.T) {
	suite.Run(t, new(LicenseServiceSuite))
}
