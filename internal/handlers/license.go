// internal/handlers/license.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/internal/services"
	"github.com/printforge/printforge-backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
	assetService   *services.AssetService
	storageService *services.StorageService
}

func NewLicenseHandler(licenseService *services.LicenseService, assetService *services.AssetService, storageService *services.StorageService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
		assetService:   assetService,
		storageService: storageService,
	}
}

func parseRecordID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license record ID", nil)
		return 0, false
	}
	return id, true
}

// POST /licenses
func (h *LicenseHandler) Purchase(c *gin.Context) {
	buyerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	record, err := h.licenseService.Purchase(buyerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"record": record})
}

// GET /licenses/:id
func (h *LicenseHandler) GetRecord(c *gin.Context) {
	recordID, ok := parseRecordID(c)
	if !ok {
		return
	}

	record, err := h.licenseService.GetRecord(recordID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"record": record})
}

// GET /licenses/mine
func (h *LicenseHandler) GetMyLicenses(c *gin.Context) {
	ownerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	records, total, err := h.licenseService.GetByOwner(ownerID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(records, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /licenses/:id/burn
func (h *LicenseHandler) Burn(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	recordID, ok := parseRecordID(c)
	if !ok {
		return
	}

	key, err := h.licenseService.BurnForDownload(recordID, callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	// A presigned link accompanies the key when object storage is wired up.
	resp := gin.H{"download_key": key}
	record, err := h.licenseService.GetRecord(recordID)
	if err == nil {
		asset, err := h.assetService.GetAsset(record.AssetID)
		if err == nil {
			if url, err := h.storageService.GeneratePresignedURL(asset.ContentRef, 15*time.Minute); err == nil {
				resp["download_url"] = url
			}
		}
	}

	utils.SuccessResponse(c, resp)
}

// POST /licenses/:id/renew
func (h *LicenseHandler) Renew(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	recordID, ok := parseRecordID(c)
	if !ok {
		return
	}

	var req services.RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	newExpiry, err := h.licenseService.Renew(recordID, req.PaidAmount, callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"expires_at": newExpiry})
}

// POST /licenses/:id/transfer
func (h *LicenseHandler) Transfer(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	recordID, ok := parseRecordID(c)
	if !ok {
		return
	}

	var req services.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if req.To == uuid.Nil {
		utils.BadRequestResponse(c, "Transfer target required", nil)
		return
	}

	record, err := h.licenseService.Transfer(recordID, callerID, req.To)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"record": record})
}

// GET /licenses/:id/validity
func (h *LicenseHandler) Validity(c *gin.Context) {
	recordID, ok := parseRecordID(c)
	if !ok {
		return
	}

	valid, err := h.licenseService.IsLicenseValid(recordID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	remaining, err := h.licenseService.TimeRemaining(recordID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"valid":          valid,
		"time_remaining": remaining,
	})
}

// GET /licenses/:id/verify
func (h *LicenseHandler) Verify(c *gin.Context) {
	recordID, ok := parseRecordID(c)
	if !ok {
		return
	}

	record, err := h.licenseService.VerifyLicense(recordID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"valid":  true,
		"record": record,
	})
}
