// internal/services/pricing_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/models"
)

type PricingServiceSuite struct {
	suite.Suite
	db      *gorm.DB
	assets  *AssetService
	pricing *PricingService
	creator *models.User
	other   *models.User
	asset   *models.Asset
}

func (suite *PricingServiceSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.assets = NewAssetService(suite.db)
	suite.pricing = NewPricingService(suite.db, suite.assets)
	suite.creator = newTestUser(suite.T(), suite.db, models.UserTypeCreator)
	suite.other = newTestUser(suite.T(), suite.db, models.UserTypeBuyer)

	asset, err := suite.assets.Register(suite.creator.ID, &RegisterAssetRequest{
		ContentRef:  "models/bench.stl",
		MetadataRef: "meta:bench",
	})
	suite.Require().NoError(err)
	suite.asset = asset
}

func (suite *PricingServiceSuite) TestSetLicenseConfig() {
	err := suite.pricing.SetLicenseConfig(suite.asset.ID, suite.creator.ID, &LicenseConfigRequest{
		Tiers: []TierConfigInput{
			{Tier: models.TierPersonal, Price: 100, Duration: 0},
			{Tier: models.TierCommercial, Price: 500, Duration: 86400 * 365},
		},
	})
	suite.Require().NoError(err)

	price, err := suite.pricing.GetLicensePrice(suite.asset.ID, models.TierCommercial)
	suite.Require().NoError(err)
	suite.EqualValues(500, price)

	duration, err := suite.pricing.GetLicenseDuration(suite.asset.ID, models.TierPersonal)
	suite.Require().NoError(err)
	suite.Equal(models.DurationPerpetual, duration)
}

func (suite *PricingServiceSuite) TestUnsetTierDefaultsToZero() {
	price, err := suite.pricing.GetLicensePrice(suite.asset.ID, models.TierIndie)
	suite.Require().NoError(err)
	suite.EqualValues(0, price)

	duration, err := suite.pricing.GetLicenseDuration(suite.asset.ID, models.TierIndie)
	suite.Require().NoError(err)
	suite.Equal(models.DurationPerpetual, duration)
}

func (suite *PricingServiceSuite) TestConfigIsCreatorOnly() {
	err := suite.pricing.SetLicensePrice(suite.asset.ID, models.TierPersonal, 100, suite.other.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func (suite *PricingServiceSuite) TestRoyaltyCap() {
	err := suite.pricing.SetRoyalty(suite.asset.ID, suite.other.ID, models.MaxRoyaltyBps+1, suite.creator.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))

	err = suite.pricing.SetRoyalty(suite.asset.ID, suite.other.ID, models.MaxRoyaltyBps, suite.creator.ID)
	suite.NoError(err)
}

func (suite *PricingServiceSuite) TestRoyaltyInfoFloorsShare() {
	// Nothing configured means no recipient and no share.
	recipient, amount, err := suite.pricing.RoyaltyInfo(suite.asset.ID, 999)
	suite.Require().NoError(err)
	suite.Nil(recipient)
	suite.EqualValues(0, amount)

	suite.Require().NoError(suite.pricing.SetRoyalty(suite.asset.ID, suite.other.ID, 1000, suite.creator.ID))

	// 999 at 1000 bps floors to 99; the fractional credit stays with the sale.
	recipient, amount, err = suite.pricing.RoyaltyInfo(suite.asset.ID, 999)
	suite.Require().NoError(err)
	suite.Require().NotNil(recipient)
	suite.Equal(suite.other.ID, *recipient)
	suite.EqualValues(99, amount)
}

func (suite *PricingServiceSuite) TestVariationPositionsAndTotalPrice() {
	suite.Require().NoError(suite.pricing.SetLicensePrice(suite.asset.ID, models.TierPersonal, 100, suite.creator.ID))

	first, err := suite.pricing.AddVariation(suite.asset.ID, suite.creator.ID, &AddVariationRequest{Name: "supports", Price: 25})
	suite.Require().NoError(err)
	suite.EqualValues(0, first.Position)

	second, err := suite.pricing.AddVariation(suite.asset.ID, suite.creator.ID, &AddVariationRequest{Name: "hollowed", Price: 40})
	suite.Require().NoError(err)
	suite.EqualValues(1, second.Position)

	total, err := suite.pricing.GetTotalPrice(suite.asset.ID, models.TierPersonal, []uint64{0, 1})
	suite.Require().NoError(err)
	suite.EqualValues(165, total)
}

func (suite *PricingServiceSuite) TestTotalPriceRejectsUnknownAndInactiveVariations() {
	_, err := suite.pricing.GetTotalPrice(suite.asset.ID, models.TierPersonal, []uint64{3})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))

	_, err = suite.pricing.AddVariation(suite.asset.ID, suite.creator.ID, &AddVariationRequest{Name: "painted", Price: 10})
	suite.Require().NoError(err)

	_, err = suite.pricing.ToggleVariationActive(suite.asset.ID, 0, suite.creator.ID)
	suite.Require().NoError(err)

	_, err = suite.pricing.GetTotalPrice(suite.asset.ID, models.TierPersonal, []uint64{0})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *PricingServiceSuite) TestMaxSupplyBelowSoldCountRejected() {
	suite.Require().NoError(suite.pricing.SetMaxSupply(suite.asset.ID, 5, suite.creator.ID))

	suite.Require().NoError(suite.db.Transaction(func(tx *gorm.DB) error {
		return suite.pricing.IncrementSoldCount(tx, suite.asset.ID)
	}))

	// Zero always means unlimited.
	suite.NoError(suite.pricing.SetMaxSupply(suite.asset.ID, 0, suite.creator.ID))

	suite.Require().NoError(suite.db.Transaction(func(tx *gorm.DB) error {
		return suite.pricing.IncrementSoldCount(tx, suite.asset.ID)
	}))

	// Sold count is 2 now; a nonzero cap below it is rejected.
	err := suite.pricing.SetMaxSupply(suite.asset.ID, 1, suite.creator.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))
}

func (suite *PricingServiceSuite) TestCanPurchaseGates() {
	// No sale config yet.
	ok, err := suite.pricing.CanPurchase(suite.asset.ID)
	suite.Require().NoError(err)
	suite.False(ok)

	_, err = suite.pricing.ToggleForSale(suite.asset.ID, suite.creator.ID)
	suite.Require().NoError(err)

	ok, err = suite.pricing.CanPurchase(suite.asset.ID)
	suite.Require().NoError(err)
	suite.True(ok)

	// Deactivating the asset closes the gate regardless of the sale flag.
	_, err = suite.assets.ToggleActive(suite.asset.ID, suite.creator.ID)
	suite.Require().NoError(err)

	ok, err = suite.pricing.CanPurchase(suite.asset.ID)
	suite.Require().NoError(err)
	suite.False(ok)
}

func TestPricingServiceSuite(t *testing.T) {
	suite.Run(t, new(PricingServiceSuite))
}
