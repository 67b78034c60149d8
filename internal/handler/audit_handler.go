package handler

import (
	"erpadmin/internal/middleware"
	"erpadmin/internal/repository"
	"erpadmin/internal/service"
	"erpadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole("admin", "manager")) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated records with users preloaded
// @Summary      Get audit logs
// @Description  Retrieves audit logs, newest first, optionally by action or entity
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action    query     string  false  "Action, e.g. EXCHANGE_ORDER"
// @Param        entityId  query     string  false  "Entity id"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{Action: c.Query("action"), EntityID: c.Query("entityId")}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, logs, total, p)
}
