package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/charity-campaigns-go/config"
	middleware "github.com/phillip/charity-campaigns-go/middleware"
	models "github.com/phillip/charity-campaigns-go/models"
	services "github.com/phillip/charity-campaigns-go/services"
	utils "github.com/phillip/charity-campaigns-go/utils"
)

// ---------------- CREATE ----------------
func CreateCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.CurrentActor(c)

		body, err := bindCampaignBody(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		patch, err := body.patch()
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		img, err := uploadedImage(c, cfg.Images)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if img != nil {
			patch.Image = img
		}

		in := services.CampaignInput{EndDate: patch.EndDate}
		if patch.Title != nil {
			in.Title = *patch.Title
		}
		if patch.Description != nil {
			in.Description = *patch.Description
		}
		if patch.Goal != nil {
			in.Goal = *patch.Goal
		}
		if patch.Image != nil {
			in.Image = *patch.Image
		}

		campaign, err := cfg.Campaigns.Create(c.Request.Context(), actor, in)
		if err != nil {
			discardUpload(c, cfg.Images, img)
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, campaign)
	}
}

// ---------------- LIST ----------------
func ListCampaigns(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaigns, err := cfg.Campaigns.ListAll(c.Request.Context())
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if utils.NotModified(c, utils.CampaignsETag(campaigns)) {
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

// ListMyCampaigns answers with a message instead of an empty list when the
// caller owns no campaigns.
func ListMyCampaigns(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		campaigns, err := cfg.Campaigns.ListByOwner(c.Request.Context(), ownerID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if len(campaigns) == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "No campaigns found for this user"})
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

// ---------------- GET ----------------
func GetCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaign, err := cfg.Campaigns.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if utils.NotModified(c, utils.CampaignsETag([]models.Campaign{*campaign})) {
			return
		}
		c.Header("Last-Modified", campaign.UpdatedAt.UTC().Format(http.TimeFormat))
		c.JSON(http.StatusOK, campaign)
	}
}

// ---------------- UPDATE ----------------
func UpdateCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.CurrentActor(c)

		body, err := bindCampaignBody(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		patch, err := body.patch()
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		// Authorize before uploading anything on the caller's behalf.
		if _, err := cfg.Campaigns.Authorize(c.Request.Context(), c.Param("id"), actor); err != nil {
			utils.RespondError(c, err)
			return
		}
		img, err := uploadedImage(c, cfg.Images)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if img != nil {
			patch.Image = img
		}

		campaign, err := cfg.Campaigns.Update(c.Request.Context(), c.Param("id"), patch, actor)
		if err != nil {
			discardUpload(c, cfg.Images, img)
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// ---------------- DELETE ----------------
func DeleteCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := cfg.Campaigns.Delete(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted", "id": id})
	}
}

// ---------------- DONATE ----------------
func DonateToCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount       *Number `json:"amount"`
			DonorName    string  `json:"donor_name"`
			DonorNameAlt string  `json:"donorName"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondError(c, models.Invalid("invalid request body: %v", err))
			return
		}
		if input.Amount == nil {
			utils.RespondError(c, models.Invalid("amount is required"))
			return
		}
		name := input.DonorName
		if name == "" {
			name = input.DonorNameAlt
		}

		campaign, err := cfg.Campaigns.Donate(c.Request.Context(), c.Param("id"), name, float64(*input.Amount))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Donation successful", "campaign": campaign})
	}
}
