package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/charity-campaigns-go/config"
	middleware "github.com/phillip/charity-campaigns-go/middleware"
	models "github.com/phillip/charity-campaigns-go/models"
	utils "github.com/phillip/charity-campaigns-go/utils"
)

// ---------------- PROFILE ----------------
func GetProfile(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := cfg.Users.GetOwnProfile(c.Request.Context(), middleware.CurrentActor(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateProfile(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name  *string `json:"name"`
			Email *string `json:"email"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondError(c, models.Invalid("invalid request body: %v", err))
			return
		}

		user, err := cfg.Users.UpdateOwnProfile(c.Request.Context(), middleware.CurrentActor(c), input.Name, input.Email)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
	}
}

// ---------------- ADMIN ----------------
func ListUsers(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := cfg.Users.ListAll(c.Request.Context(), middleware.CurrentActor(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func GetUser(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := cfg.Users.GetByID(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateUser(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.UserPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.RespondError(c, models.Invalid("invalid request body: %v", err))
			return
		}

		user, err := cfg.Users.Update(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), patch)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
	}
}

func DeleteUser(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := cfg.Users.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted", "id": id})
	}
}
