package handler

import (
	"erpadmin/internal/middleware"
	"erpadmin/internal/model"
	"erpadmin/internal/service"
	"erpadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
	auth       *middleware.Auth
}

func NewTaxHandler(taxService service.TaxService, auth *middleware.Auth) *TaxHandler {
	return &TaxHandler{taxService: taxService, auth: auth}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax-rules")
	tax.Use(h.auth.RequireRole("admin", "manager", "staff"))
	{
		tax.GET("", h.GetTaxRules)
		tax.GET("/active", h.GetActiveTaxRate)
		tax.POST("", h.auth.RequireRole("admin"), h.CreateTaxRule)
	}
}

// GetTaxRules returns all tax rules ordered by effective_from DESC
// @Summary      List tax rules
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        type   query     string  false  "VAT or FCT"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/tax-rules [get]
func (h *TaxHandler) GetTaxRules(c *gin.Context) {
	p := pagination.Parse(c)
	rules, total, err := h.taxService.GetTaxRules(c.Request.Context(), c.Query("type"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, rules, total, p)
}

// GetActiveTaxRate returns the rule in force today; data is null when none applies
// @Summary      Active tax rate
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        type  query     string  false  "VAT (default) or FCT"
// @Success      200   {object}  response.Response{data=service.ActiveTaxRateResponse}
// @Router       /api/tax-rules/active [get]
func (h *TaxHandler) GetActiveTaxRate(c *gin.Context) {
	rate, err := h.taxService.GetActiveTaxRate(c.Request.Context(), c.DefaultQuery("type", model.TaxTypeVAT))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, rate)
}

// CreateTaxRule creates a new tax rule entry
// @Summary      Create tax rule
// @Tags         tax
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaxRuleRequest  true  "Tax Rule Payload"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.CreateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rule, err := h.taxService.CreateTaxRule(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, rule)
}
