package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/response"
)

type ProfileHandler struct {
	svc *services.ProfileService
}

func NewProfileHandler(svc *services.ProfileService) (*ProfileHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("profile handler: service is required")
	}
	return &ProfileHandler{svc: svc}, nil
}

type setProfileActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type updateProfilePermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" validate:"required"`
}

// GET /api/access/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.svc.ListProfiles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profiles)
}

// GET /api/access/profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	profileID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(requestContext(c), profileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// GET /api/access/profiles/by-code/:code
func (h *ProfileHandler) GetByCode(c *gin.Context) {
	profile, err := h.svc.GetProfileByCode(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// POST /api/access/profiles
func (h *ProfileHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var input services.CreateProfileInput
	if !bindAndValidate(c, &input) {
		return
	}

	profile, err := h.svc.CreateProfile(requestContext(c), actor, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, profile)
}

// PATCH /api/access/profiles/:id/active
func (h *ProfileHandler) SetActive(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	profileID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req setProfileActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.svc.SetProfileActive(requestContext(c), actor, profileID, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// GET /api/access/profiles/:id/permissions
func (h *ProfileHandler) Permissions(c *gin.Context) {
	profileID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	perms, err := h.svc.GetProfilePermissions(requestContext(c), profileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// PUT /api/access/profiles/:id/permissions
//
// Replaces the full grant set. An empty list removes every grant.
func (h *ProfileHandler) UpdatePermissions(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	profileID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req updateProfilePermissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	diff, err := h.svc.UpdateProfilePermissions(requestContext(c), actor, profileID, req.PermissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, diff)
}
