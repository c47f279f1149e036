package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/pkg/logger"
	"github.com/charlesng35/talentgate/pkg/response"
)

// OpsLogHandler serves the recent operational log lines kept in memory. The access audit log
// is the system of record; this view is lost on restart.
type OpsLogHandler struct {
	ring *logger.Ring
}

func NewOpsLogHandler(ring *logger.Ring) (*OpsLogHandler, error) {
	if ring == nil {
		return nil, fmt.Errorf("ops log handler: ring buffer is required")
	}
	return &OpsLogHandler{ring: ring}, nil
}

// GET /api/ops/logs?level=&limit=
//
// Newest entries last. limit keeps the most recent n entries.
func (h *OpsLogHandler) List(c *gin.Context) {
	entries := h.ring.Snapshot()

	if level := strings.ToLower(strings.TrimSpace(c.Query("level"))); level != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limit := parseIntQuery(c, "limit", 0); limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}

	response.Success(c, http.StatusOK, entries)
}
