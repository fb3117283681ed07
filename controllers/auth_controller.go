package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/charity-campaigns-go/config"
	middleware "github.com/phillip/charity-campaigns-go/middleware"
	models "github.com/phillip/charity-campaigns-go/models"
	services "github.com/phillip/charity-campaigns-go/services"
	utils "github.com/phillip/charity-campaigns-go/utils"
)

// ---------------- REGISTER ----------------
func Register(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name          string `json:"name" binding:"required"`
			Email         string `json:"email" binding:"required,email"`
			Password      string `json:"password" binding:"required"`
			ContactNumber string `json:"contact_number"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondError(c, models.Invalid("%v", err))
			return
		}

		user, token, err := cfg.Users.Register(c.Request.Context(), services.RegisterInput{
			Name:          input.Name,
			Email:         input.Email,
			Password:      input.Password,
			ContactNumber: input.ContactNumber,
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
	}
}

// ---------------- LOGIN ----------------
func Login(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondError(c, models.Invalid("%v", err))
			return
		}

		user, token, err := cfg.Users.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

// ---------------- REFRESH ----------------
func RefreshToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, token, err := cfg.Users.RefreshToken(c.Request.Context(), middleware.CurrentActor(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}
