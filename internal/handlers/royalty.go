// internal/handlers/royalty.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/printforge/printforge-backend/internal/services"
	"github.com/printforge/printforge-backend/internal/utils"
)

type RoyaltyHandler struct {
	royaltyService *services.RoyaltyService
}

func NewRoyaltyHandler(royaltyService *services.RoyaltyService) *RoyaltyHandler {
	return &RoyaltyHandler{
		royaltyService: royaltyService,
	}
}

// POST /royalties/derivative
func (h *RoyaltyHandler) SetDerivativeRoyalty(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.SetDerivativeRoyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	entry, err := h.royaltyService.SetDerivativeRoyalty(callerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"royalty": entry})
}

// POST /royalties/derivative/pay
func (h *RoyaltyHandler) PayDerivativeRoyalty(c *gin.Context) {
	payerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PayDerivativeRoyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	paid, err := h.royaltyService.PayDerivativeRoyalty(payerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"royalty_paid": paid})
}

// POST /royalties/tip
func (h *RoyaltyHandler) PayDirectRoyalty(c *gin.Context) {
	payerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PayDirectRoyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.royaltyService.PayDirectRoyalty(payerID, &req); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Tip sent"})
}

// POST /royalties/claim
func (h *RoyaltyHandler) Claim(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	claimed, err := h.royaltyService.ClaimRoyalties(callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"claimed": claimed})
}

// GET /royalties/balance
func (h *RoyaltyHandler) Balance(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	balance, err := h.royaltyService.ClaimableBalance(callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"claimable_balance": balance})
}

// GET /royalties/history
func (h *RoyaltyHandler) History(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	payments, err := h.royaltyService.PaymentHistory(callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"payments": payments})
}

// GET /royalties/total
func (h *RoyaltyHandler) TotalEarned(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	total, err := h.royaltyService.TotalEarned(callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"total_earned": total})
}

// GET /royalties/derivative/:id
func (h *RoyaltyHandler) GetDerivativeRoyalty(c *gin.Context) {
	derivativeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid asset ID", nil)
		return
	}

	entry, err := h.royaltyService.GetDerivativeRoyalty(derivativeID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"royalty": entry})
}

// DELETE /royalties/derivative/:id (admin)
func (h *RoyaltyHandler) DeactivateDerivativeRoyalty(c *gin.Context) {
	derivativeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid asset ID", nil)
		return
	}

	if err := h.royaltyService.DeactivateDerivativeRoyalty(derivativeID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Derivative royalty deactivated"})
}
