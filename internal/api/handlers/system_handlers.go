package handlers

import (
	"io"
	"net/http"

	"azure-face-go/internal/server/sse"
	"azure-face-go/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetStatus reports service health: per-profile API reachability, MQTT
// connection state, journal totals and process statistics.
func (h *APIHandler) GetStatus(c *gin.Context) {
	profiles := h.faceService.TestConnections(c.Request.Context())

	status := "ok"
	for _, reachable := range profiles {
		if !reachable {
			status = "degraded"
			break
		}
	}

	response := gin.H{
		"status":   status,
		"profiles": profiles,
		"mqtt": gin.H{
			"enabled":   h.cfg.MQTT.Enabled,
			"connected": h.mqttClient != nil && h.mqttClient.IsConnected(),
		},
		"sse": gin.H{
			"clients": h.hub.ClientCount(),
		},
		"system": utils.GetSystemStats(h.pool),
	}

	if h.journal != nil {
		journalStats, err := h.journal.GetStats()
		if err != nil {
			log.Warnf("Failed to read journal stats: %v", err)
		} else {
			response["journal"] = journalStats
		}
	}

	c.JSON(http.StatusOK, response)
}

// Stream subscribes the caller to the live event feed over SSE
func (h *APIHandler) Stream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	client := make(sse.Client, 10)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	c.Stream(func(w io.Writer) bool {
		msg, ok := <-client
		if !ok {
			return false
		}
		c.SSEvent("message", string(msg))
		return true
	})
}
