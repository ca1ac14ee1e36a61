package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomMcKenna1/nutrilytics-backend/middlewares"
)

// Me returns the verified identity behind the request.
func Me(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.CurrentIdentity(c))
}
