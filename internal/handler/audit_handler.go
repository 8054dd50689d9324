package handler

import (
	"net/http"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/middleware"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditRepo repository.AuditRepository
}

func NewAuditHandler(auditRepo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Retrieves paginated workflow action history, optionally filtered by action
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Filter by action"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	page, limit := pageParams(c)

	logs, total, err := h.auditRepo.List(c.Request.Context(), c.Query("action"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}
