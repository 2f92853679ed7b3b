package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/response"
)

// AdminHandler exposes user provisioning and RBAC administration
type AdminHandler struct {
	auth authrpc.AuthServiceClient
	log  *logger.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(auth authrpc.AuthServiceClient) *AdminHandler {
	return &AdminHandler{
		auth: auth,
		log:  logger.Get().With(zap.String("component", "admin_handler")),
	}
}

// ListUsers GET /api/v1/admin/users?page=&limit=&search=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.auth.ListUsers(c.Request.Context(), &authrpc.ListUsersRequest{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.SuccessWithMeta(c, resp.Users, response.PageMeta{Page: resp.Page, Limit: resp.Limit, Total: resp.Total})
}

// CreateUser POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req authrpc.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.CreateUser(c.Request.Context(), &req)
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Created(c, resp.User)
}

// GetUserPermissions GET /api/v1/admin/users/:id/permissions
func (h *AdminHandler) GetUserPermissions(c *gin.Context) {
	resp, err := h.auth.GetUserPermissions(c.Request.Context(), &authrpc.GetUserPermissionsRequest{UserID: c.Param("id")})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp)
}

// AssignRoles replaces the user's roles
// PUT /api/v1/admin/users/:id/roles
func (h *AdminHandler) AssignRoles(c *gin.Context) {
	var req AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.AssignRoles(c.Request.Context(), &authrpc.AssignRolesRequest{
		UserID:  c.Param("id"),
		RoleIDs: req.RoleIDs,
	})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp.User)
}

// SetUserActive enables or disables the account
// PUT /api/v1/admin/users/:id/active
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.SetUserActive(c.Request.Context(), &authrpc.SetUserActiveRequest{
		UserID: c.Param("id"),
		Active: *req.Active,
	})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "User active state changed",
		zap.String("user_id", resp.User.ID),
		zap.Bool("active", *req.Active),
	)
	response.Success(c, resp.User)
}

// SetCredentialActive enables or disables one login method of the user
// PUT /api/v1/admin/users/:id/credentials/:type/active
func (h *AdminHandler) SetCredentialActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.SetCredentialActive(c.Request.Context(), &authrpc.SetCredentialActiveRequest{
		UserID: c.Param("id"),
		Type:   c.Param("type"),
		Active: *req.Active,
	})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp.Credential)
}

// ChangePassword sets a new password on the user's password credential
// PUT /api/v1/admin/users/:id/password
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if _, err := h.auth.ChangePassword(c.Request.Context(), &authrpc.ChangePasswordRequest{
		UserID:   c.Param("id"),
		Password: req.Password,
	}); err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, gin.H{"message": "Password changed"})
}

// ListRoles GET /api/v1/admin/roles
func (h *AdminHandler) ListRoles(c *gin.Context) {
	resp, err := h.auth.ListRoles(c.Request.Context(), &authrpc.ListRolesRequest{})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp.Roles)
}

// CreateRole POST /api/v1/admin/roles
func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req authrpc.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.CreateRole(c.Request.Context(), &req)
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Created(c, resp.Role)
}

// SetRolePermissions replaces the role's permissions
// PUT /api/v1/admin/roles/:id/permissions
func (h *AdminHandler) SetRolePermissions(c *gin.Context) {
	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.SetRolePermissions(c.Request.Context(), &authrpc.SetRolePermissionsRequest{
		RoleID:      c.Param("id"),
		Permissions: req.Permissions,
	})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp.Role)
}

// ListPermissions GET /api/v1/admin/permissions
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	resp, err := h.auth.ListPermissions(c.Request.Context(), &authrpc.ListPermissionsRequest{})
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp.Permissions)
}

// CreatePermission POST /api/v1/admin/permissions
func (h *AdminHandler) CreatePermission(c *gin.Context) {
	var req authrpc.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.auth.CreatePermission(c.Request.Context(), &req)
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Created(c, resp.Permission)
}

// UpdatePermission PUT /api/v1/admin/permissions/:id
func (h *AdminHandler) UpdatePermission(c *gin.Context) {
	var req authrpc.UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.ID = c.Param("id")

	resp, err := h.auth.UpdatePermission(c.Request.Context(), &req)
	if err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, resp.Permission)
}

// DeletePermission DELETE /api/v1/admin/permissions/:id
func (h *AdminHandler) DeletePermission(c *gin.Context) {
	if _, err := h.auth.DeletePermission(c.Request.Context(), &authrpc.DeletePermissionRequest{ID: c.Param("id")}); err != nil {
		writeRPCError(c, h.log, err)
		return
	}
	response.Success(c, gin.H{"message": "Permission deleted"})
}
