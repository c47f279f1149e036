package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/models"
	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/response"
)

type ChangeRequestHandler struct {
	svc *services.ChangeRequestService
}

func NewChangeRequestHandler(svc *services.ChangeRequestService) (*ChangeRequestHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("change request handler: service is required")
	}
	return &ChangeRequestHandler{svc: svc}, nil
}

type resolveChangeRequest struct {
	Comment string `json:"comment" validate:"max=1000"`
}

// POST /api/access/change-requests
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	requester, ok := actorID(c)
	if !ok {
		return
	}

	var payload services.ChangeRequestPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	request, err := h.svc.CreatePermissionChangeRequest(requestContext(c), requester, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// GET /api/access/change-requests?status=&requester_id=&limit=&offset=
func (h *ChangeRequestHandler) List(c *gin.Context) {
	filter := services.ChangeRequestFilter{
		Status: models.ChangeStatus(strings.TrimSpace(c.Query("status"))),
		Limit:  parseIntQuery(c, "limit", 100),
		Offset: parseIntQuery(c, "offset", 0),
	}
	switch filter.Status {
	case "", models.ChangeStatusPending, models.ChangeStatusApproved, models.ChangeStatusRejected:
	default:
		response.Error(c, errors.InvalidInput("unknown status", string(filter.Status)))
		return
	}
	if raw := strings.TrimSpace(c.Query("requester_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, errors.InvalidInput("invalid requester id", raw))
			return
		}
		requester := uint(id)
		filter.RequesterID = &requester
	}

	requests, err := h.svc.ListPermissionChangeRequests(requestContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, requests)
}

// GET /api/access/change-requests/pending
func (h *ChangeRequestHandler) Pending(c *gin.Context) {
	requests, err := h.svc.GetPendingPermissionChangeRequests(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, requests)
}

// GET /api/access/change-requests/:id
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	requestID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	request, err := h.svc.GetPermissionChangeRequest(requestContext(c), requestID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/access/change-requests/:id/approve
func (h *ChangeRequestHandler) Approve(c *gin.Context) {
	h.resolve(c, h.svc.ApprovePermissionChangeRequest)
}

// POST /api/access/change-requests/:id/reject
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	h.resolve(c, h.svc.RejectPermissionChangeRequest)
}

type resolveFunc func(ctx context.Context, requestID, approverID uint, comment string) (*models.PermissionChangeRequest, error)

func (h *ChangeRequestHandler) resolve(c *gin.Context, fn resolveFunc) {
	approver, ok := actorID(c)
	if !ok {
		return
	}
	requestID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req resolveChangeRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}

	request, err := fn(requestContext(c), requestID, approver, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}
