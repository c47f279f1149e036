package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/response"
)

type AssignmentHandler struct {
	svc *services.AssignmentService
}

func NewAssignmentHandler(svc *services.AssignmentService) (*AssignmentHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("assignment handler: service is required")
	}
	return &AssignmentHandler{svc: svc}, nil
}

// GET /api/access/users/:userID/profiles
func (h *AssignmentHandler) ListProfiles(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	profiles, err := h.svc.GetUserProfiles(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profiles)
}

// GET /api/access/users/:userID/profiles/history
func (h *AssignmentHandler) History(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	bindings, err := h.svc.ListAssignmentHistory(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, bindings)
}

// PUT /api/access/users/:userID/profiles/:profileID
//
// Idempotent: assigning an already active profile returns the existing binding.
func (h *AssignmentHandler) Assign(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	profileID, ok := uintParam(c, "profileID")
	if !ok {
		return
	}

	binding, err := h.svc.AssignProfileToUser(requestContext(c), userID, profileID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, binding)
}

// DELETE /api/access/users/:userID/profiles/:profileID
func (h *AssignmentHandler) Revoke(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	profileID, ok := uintParam(c, "profileID")
	if !ok {
		return
	}

	if err := h.svc.RevokeProfileFromUser(requestContext(c), userID, profileID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
