package handler

import (
	"erpadmin/internal/middleware"
	"erpadmin/internal/service"
	"erpadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
	auth         *middleware.Auth
}

func NewOrderHandler(orderService service.OrderService, auth *middleware.Auth) *OrderHandler {
	return &OrderHandler{orderService: orderService, auth: auth}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders")
	orders.Use(h.auth.RequireRole("admin", "manager", "staff"))
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.POST("/exchange", h.ExchangeOrder)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/payments", h.RecordPayment)
	}
}

// CreateOrder places a new order and prices it
// @Summary      Create order
// @Description  Places an order; the VAT rate defaults to the active VAT rule when omitted
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, order)
}

// ListOrders returns orders newest first
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, orders, total, p)
}

// GetOrder returns one order with its line items and exchange history
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.Order}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, order)
}

// RecordPayment adds a payment to the order
// @Summary      Record payment
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/payments [post]
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	order, err := h.orderService.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, order)
}

// ExchangeOrder removes and replaces products on an order and reports the payment difference
// @Summary      Exchange products
// @Description  Applies removals by line item id, merges replacements by product name, recalculates totals and appends an exchange record
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ExchangeRequest  true  "Exchange Payload"
// @Success      200      {object}  response.Response{data=service.ExchangeResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/orders/exchange [post]
func (h *OrderHandler) ExchangeOrder(c *gin.Context) {
	var req service.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	result, err := h.orderService.ApplyExchange(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, result)
}
