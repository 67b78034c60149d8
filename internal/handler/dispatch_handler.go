package handler

import (
	"context"

	"erpadmin/internal/middleware"
	"erpadmin/internal/model"
	"erpadmin/internal/service"
	"erpadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type DispatchHandler struct {
	dispatchService service.DispatchService
	auth            *middleware.Auth
}

func NewDispatchHandler(dispatchService service.DispatchService, auth *middleware.Auth) *DispatchHandler {
	return &DispatchHandler{dispatchService: dispatchService, auth: auth}
}

type dispatchQuery struct {
	Status string `form:"status" binding:"omitempty,dispatch_status"`
}

func (h *DispatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyone := h.auth.RequireRole("admin", "manager", "staff")
	managers := h.auth.RequireRole("admin", "manager")

	dispatches := router.Group("/api/dispatches")
	{
		dispatches.GET("", anyone, h.ListDispatches)
		dispatches.POST("", anyone, h.CreateDispatch)
		dispatches.GET("/:id", anyone, h.GetDispatch)
		dispatches.PUT("/:id/approve", managers, h.Approve)
		dispatches.PUT("/:id/ship", anyone, h.Ship)
		dispatches.PUT("/:id/deliver", anyone, h.Deliver)
		dispatches.PUT("/:id/cancel", managers, h.Cancel)
	}
	router.POST("/api/rebalance", managers, h.Rebalance)
}

// CreateDispatch drafts a pending stock transfer between two stores
// @Summary      Create dispatch
// @Tags         dispatches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateDispatchRequest  true  "Create Dispatch Payload"
// @Success      201      {object}  response.Response{data=model.Dispatch}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/dispatches [post]
func (h *DispatchHandler) CreateDispatch(c *gin.Context) {
	var req service.CreateDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	dispatch, err := h.dispatchService.CreateDispatch(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, dispatch)
}

// Rebalance drafts a dispatch moving the listed in-stock units to another store
// @Summary      Rebalance stock
// @Tags         dispatches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RebalanceRequest  true  "Rebalance Payload"
// @Success      201      {object}  response.Response{data=model.Dispatch}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/rebalance [post]
func (h *DispatchHandler) Rebalance(c *gin.Context) {
	var req service.RebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	dispatch, err := h.dispatchService.Rebalance(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, dispatch)
}

// ListDispatches returns dispatches, optionally filtered by status
// @Summary      List dispatches
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "pending, approved, in_transit, delivered or cancelled"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      400     {object}  response.Response
// @Router       /api/dispatches [get]
func (h *DispatchHandler) ListDispatches(c *gin.Context) {
	var q dispatchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badPayload(c, err)
		return
	}

	p := pagination.Parse(c)
	dispatches, total, err := h.dispatchService.ListDispatches(c.Request.Context(), model.DispatchStatus(q.Status), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, dispatches, total, p)
}

// GetDispatch returns one dispatch with its items
// @Summary      Get dispatch
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Dispatch ID"
// @Success      200  {object}  response.Response{data=model.Dispatch}
// @Failure      404  {object}  response.Response
// @Router       /api/dispatches/{id} [get]
func (h *DispatchHandler) GetDispatch(c *gin.Context) {
	dispatch, err := h.dispatchService.GetDispatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, dispatch)
}

// Approve moves a pending dispatch to approved
// @Summary      Approve dispatch
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Dispatch ID"
// @Success      200  {object}  response.Response{data=model.Dispatch}
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/dispatches/{id}/approve [put]
func (h *DispatchHandler) Approve(c *gin.Context) {
	h.transition(c, h.dispatchService.Approve)
}

// Ship moves an approved dispatch to in_transit
// @Summary      Ship dispatch
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Dispatch ID"
// @Success      200  {object}  response.Response{data=model.Dispatch}
// @Failure      422  {object}  response.Response
// @Router       /api/dispatches/{id}/ship [put]
func (h *DispatchHandler) Ship(c *gin.Context) {
	h.transition(c, h.dispatchService.Ship)
}

// Deliver completes an in-transit dispatch and relocates its units
// @Summary      Deliver dispatch
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Dispatch ID"
// @Success      200  {object}  response.Response{data=model.Dispatch}
// @Failure      422  {object}  response.Response
// @Router       /api/dispatches/{id}/deliver [put]
func (h *DispatchHandler) Deliver(c *gin.Context) {
	h.transition(c, h.dispatchService.Deliver)
}

// Cancel withdraws a pending or approved dispatch
// @Summary      Cancel dispatch
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Dispatch ID"
// @Success      200  {object}  response.Response{data=model.Dispatch}
// @Failure      422  {object}  response.Response
// @Router       /api/dispatches/{id}/cancel [put]
func (h *DispatchHandler) Cancel(c *gin.Context) {
	h.transition(c, h.dispatchService.Cancel)
}

func (h *DispatchHandler) transition(c *gin.Context, step func(context.Context, string) (*model.Dispatch, error)) {
	dispatch, err := step(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, dispatch)
}
