package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/permissions"
	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/response"
)

type PermissionHandler struct {
	catalog  *permissions.Catalog
	resolver *services.Resolver
}

func NewPermissionHandler(catalog *permissions.Catalog, resolver *services.Resolver) (*PermissionHandler, error) {
	if catalog == nil || resolver == nil {
		return nil, fmt.Errorf("permission handler: catalog and resolver are required")
	}
	return &PermissionHandler{catalog: catalog, resolver: resolver}, nil
}

type permissionCheckRequest struct {
	Resource string `json:"resource" validate:"required,max=64"`
	Action   string `json:"action" validate:"required,max=64"`
}

type permissionCheckResult struct {
	UserID   uint   `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Allowed  bool   `json:"allowed"`
}

// GET /api/access/permissions
func (h *PermissionHandler) Catalog(c *gin.Context) {
	var (
		perms any
		err   error
	)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		perms, err = h.catalog.ListPermissionsByCategory(requestContext(c), category)
	} else {
		perms, err = h.catalog.ListPermissions(requestContext(c))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/access/me/permissions
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	perms, err := h.resolver.GetUserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// POST /api/access/me/check
//
// Evaluates a permission for the caller and records the check in the audit log.
func (h *PermissionHandler) CheckMine(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req permissionCheckRequest
	if !bindAndValidate(c, &req) {
		return
	}

	allowed, err := h.resolver.CheckAndLog(requestContext(c), userID, req.Resource, req.Action, map[string]any{
		"source": "self_check",
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, permissionCheckResult{
		UserID:   userID,
		Resource: req.Resource,
		Action:   req.Action,
		Allowed:  allowed,
	})
}

// GET /api/access/users/:userID/permissions
func (h *PermissionHandler) UserPermissions(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	perms, err := h.resolver.GetUserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/access/users/:userID/permissions/check?resource=&action=
func (h *PermissionHandler) CheckUser(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	resource := strings.TrimSpace(c.Query("resource"))
	action := strings.TrimSpace(c.Query("action"))
	if resource == "" || action == "" {
		response.Error(c, errors.InvalidInput("resource and action are required", ""))
		return
	}

	allowed, err := h.resolver.HasPermission(requestContext(c), userID, resource, action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, permissionCheckResult{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Allowed:  allowed,
	})
}
