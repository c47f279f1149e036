package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/response"
)

type AuditHandler struct {
	svc             *services.AuditService
	defaultPageSize int
}

func NewAuditHandler(svc *services.AuditService, defaultPageSize int) (*AuditHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("audit handler: service is required")
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 100
	}
	return &AuditHandler{svc: svc, defaultPageSize: defaultPageSize}, nil
}

// GET /api/access/audit?actor_id=&resource=&action=&allowed=&since=&until=&limit=&offset=
func (h *AuditHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	ctx := requestContext(c)
	logs, err := h.svc.GetAccessLogs(ctx, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	total, err := h.svc.CountAccessLogs(ctx, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Total:  total,
	})
}

// GET /api/access/audit/export
//
// Same filters as List without paging.
func (h *AuditHandler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	filter.Limit = 0
	filter.Offset = 0

	logs, err := h.svc.GetAccessLogs(requestContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

func (h *AuditHandler) parseFilter(c *gin.Context) (services.AuditFilter, bool) {
	filter := services.AuditFilter{
		Resource: strings.TrimSpace(c.Query("resource")),
		Action:   strings.TrimSpace(c.Query("action")),
		Limit:    parseIntQuery(c, "limit", h.defaultPageSize),
		Offset:   parseIntQuery(c, "offset", 0),
	}

	if raw := strings.TrimSpace(c.Query("actor_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, errors.InvalidInput("invalid actor id", raw))
			return filter, false
		}
		actor := uint(id)
		filter.ActorID = &actor
	}
	if raw := strings.TrimSpace(c.Query("allowed")); raw != "" {
		allowed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, errors.InvalidInput("invalid allowed flag", raw))
			return filter, false
		}
		filter.Allowed = &allowed
	}
	for key, dest := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, errors.InvalidInput("invalid "+key+" timestamp", raw))
			return filter, false
		}
		*dest = &t
	}

	return filter, true
}
