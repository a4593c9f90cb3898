package central

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/danmuck/espblink/internal/auth"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the node list and command endpoints. The POST
// routes require a bearer token accepted by guard when guard is non-nil.
func (c *Central) RegisterRoutes(routes gin.IRoutes, guard auth.Validator) {
	require := auth.Require(guard)

	routes.GET("/nodes", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"nodes": c.Nodes()})
	})

	routes.POST("/nodes/:mac/approve", require, func(ctx *gin.Context) {
		addr, err := protocol.ParseAddress(ctx.Param("mac"))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := c.Approve(addr); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrUnknownNode) {
				status = http.StatusNotFound
			}
			ctx.JSON(status, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "node": protocol.FormatAddress(addr)})
	})

	routes.POST("/nodes/:mac/led/:value", require, func(ctx *gin.Context) {
		addr, err := protocol.ParseAddress(ctx.Param("mac"))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		led, err := strconv.Atoi(ctx.Param("value"))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "led value must be an integer"})
			return
		}
		if err := c.Command(addr, led); err != nil {
			ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusAccepted, gin.H{"status": "sent", "node": protocol.FormatAddress(addr), "led": led})
	})
}
