package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/charity-campaigns-go/config"
)

func Health(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		storage := "ok"
		if cfg.Store != nil {
			if err := cfg.Store.Ping(c.Request.Context()); err != nil {
				storage = "unreachable"
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": storage})
	}
}
