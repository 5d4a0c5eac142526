// internal/handlers/pricing.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/internal/models"
	"github.com/printforge/printforge-backend/internal/services"
	"github.com/printforge/printforge-backend/internal/utils"
)

type PricingHandler struct {
	pricingService *services.PricingService
}

func NewPricingHandler(pricingService *services.PricingService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
	}
}

// GET /assets/:id/pricing
func (h *PricingHandler) GetPricing(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	pricing, err := h.pricingService.GetPricing(assetID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"pricing": pricing})
}

// PUT /assets/:id/pricing
func (h *PricingHandler) SetLicenseConfig(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req services.LicenseConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.pricingService.SetLicenseConfig(assetID, callerID, &req); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "License configuration updated"})
}

// PUT /assets/:id/pricing/price
func (h *PricingHandler) SetLicensePrice(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req struct {
		Tier  models.LicenseTier `json:"tier" binding:"required"`
		Price int64              `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.pricingService.SetLicensePrice(assetID, req.Tier, req.Price, callerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Price updated"})
}

// PUT /assets/:id/pricing/duration
func (h *PricingHandler) SetLicenseDuration(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req struct {
		Tier     models.LicenseTier `json:"tier" binding:"required"`
		Duration int64              `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.pricingService.SetLicenseDuration(assetID, req.Tier, req.Duration, callerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Duration updated"})
}

// PUT /assets/:id/pricing/royalty
func (h *PricingHandler) SetRoyalty(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req struct {
		RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
		RoyaltyBps  uint32    `json:"royalty_bps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.pricingService.SetRoyalty(assetID, req.RecipientID, req.RoyaltyBps, callerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Royalty updated"})
}

// PUT /assets/:id/pricing/supply
func (h *PricingHandler) SetMaxSupply(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req struct {
		MaxSupply uint32 `json:"max_supply"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.pricingService.SetMaxSupply(assetID, req.MaxSupply, callerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Supply cap updated"})
}

// PUT /assets/:id/pricing/toggle-for-sale
func (h *PricingHandler) ToggleForSale(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	config, err := h.pricingService.ToggleForSale(assetID, callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"sale_config": config})
}

// POST /assets/:id/variations
func (h *PricingHandler) AddVariation(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req services.AddVariationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	variation, err := h.pricingService.AddVariation(assetID, callerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"variation": variation})
}

// PUT /assets/:id/variations/:position/toggle
func (h *PricingHandler) ToggleVariationActive(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	position, err := strconv.ParseUint(c.Param("position"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid variation position", nil)
		return
	}

	variation, err := h.pricingService.ToggleVariationActive(assetID, uint32(position), callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"variation": variation})
}

// GET /assets/:id/variations
func (h *PricingHandler) GetActiveVariations(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	variations, err := h.pricingService.GetActiveVariations(assetID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"variations": variations})
}

// GET /assets/:id/quote?tier=indie&variations=0,2
func (h *PricingHandler) Quote(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	tier := models.LicenseTier(c.Query("tier"))
	if !tier.Valid() {
		utils.BadRequestResponse(c, "Invalid license tier", nil)
		return
	}

	var variationIDs []uint64
	if raw := c.Query("variations"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid variation position", nil)
				return
			}
			variationIDs = append(variationIDs, id)
		}
	}

	total, err := h.pricingService.GetTotalPrice(assetID, tier, variationIDs)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	available, err := h.pricingService.CanPurchase(assetID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"asset_id":    assetID,
		"tier":        tier,
		"total_price": total,
		"available":   available,
	})
}
