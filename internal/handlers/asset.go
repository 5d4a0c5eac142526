// internal/handlers/asset.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/printforge/printforge-backend/internal/services"
	"github.com/printforge/printforge-backend/internal/utils"
)

type AssetHandler struct {
	assetService   *services.AssetService
	storageService *services.StorageService
}

func NewAssetHandler(assetService *services.AssetService, storageService *services.StorageService) *AssetHandler {
	return &AssetHandler{
		assetService:   assetService,
		storageService: storageService,
	}
}

// parseAssetID reads the numeric :id path parameter.
func parseAssetID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid asset ID", nil)
		return 0, false
	}
	return id, true
}

// POST /assets
func (h *AssetHandler) Register(c *gin.Context) {
	creatorID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RegisterAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	asset, err := h.assetService.Register(creatorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"asset": asset})
}

// POST /assets/:id/derivatives
func (h *AssetHandler) RegisterDerivative(c *gin.Context) {
	creatorID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	originalID, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req services.RegisterAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	asset, err := h.assetService.RegisterDerivative(creatorID, originalID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"asset": asset})
}

// PUT /assets/:id/metadata
func (h *AssetHandler) UpdateMetadata(c *gin.Context) {
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
		MetadataRef string `json:"metadata_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	asset, err := h.assetService.UpdateMetadata(assetID, callerID, req.MetadataRef)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"asset": asset})
}

// PUT /assets/:id/toggle-active
func (h *AssetHandler) ToggleActive(c *gin.Context) {
	callerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	asset, err := h.assetService.ToggleActive(assetID, callerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"asset": asset})
}

// GET /assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	asset, err := h.assetService.GetAsset(assetID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"asset": asset})
}

// GET /assets/:id/derivatives
func (h *AssetHandler) GetDerivatives(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	derivatives, err := h.assetService.GetDerivatives(assetID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"derivatives": derivatives})
}

// GET /assets
func (h *AssetHandler) Search(c *gin.Context) {
	params := services.AssetSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		ActiveOnly:       c.Query("active_only") == "true",
		Tag:              c.Query("tag"),
	}

	if creatorIDStr := c.Query("creator_id"); creatorIDStr != "" {
		if creatorID, err := uuid.Parse(creatorIDStr); err == nil {
			params.CreatorID = &creatorID
		}
	}

	assets, total, err := h.assetService.Search(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(assets, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /assets/mine
func (h *AssetHandler) GetMyAssets(c *gin.Context) {
	creatorID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	assets, err := h.assetService.GetByCreator(creatorID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"assets": assets})
}

// POST /assets/upload
func (h *AssetHandler) Upload(c *gin.Context) {
	if _, exists := utils.GetUserIDFromContext(c); !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Missing file upload", err.Error())
		return
	}
	defer file.Close()

	category := c.DefaultPostForm("category", "models")
	options := h.storageService.GetDefaultUploadOptions(category)

	result, err := h.storageService.UploadModel(file, header, options)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	response := gin.H{"upload": result}

	// An optional metadata document rides along with the model so callers
	// can register the asset with both refs in one round trip.
	if metadata := c.PostForm("metadata"); metadata != "" {
		metaResult, err := h.storageService.UploadMetadata([]byte(metadata), "metadata")
		if err != nil {
			// Orphaned model files are not left behind.
			if delErr := h.storageService.DeleteFile(result.Key); delErr != nil {
				logrus.WithError(delErr).WithField("key", result.Key).Warn("Failed to remove orphaned upload")
			}
			utils.AppErrorResponse(c, err)
			return
		}
		response["metadata"] = metaResult
	}

	utils.CreatedResponse(c, response)
}
