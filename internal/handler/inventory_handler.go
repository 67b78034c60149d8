package handler

import (
	"erpadmin/internal/middleware"
	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	"erpadmin/internal/service"
	"erpadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	auth             *middleware.Auth
}

func NewInventoryHandler(inventoryService service.InventoryService, auth *middleware.Auth) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, auth: auth}
}

type inventoryQuery struct {
	StoreID string `form:"storeId"`
	Status  string `form:"status" binding:"omitempty,inventory_status"`
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	api.Use(h.auth.RequireRole("admin", "manager", "staff"))
	{
		api.GET("/inventory", h.ListItems)
		api.POST("/inventory", h.ReceiveItem)
		api.GET("/inventory/:barcode", h.GetItem)
		api.POST("/inventory/:barcode/sell", h.SellItem)
		api.GET("/defects", h.ListDefects)
		api.POST("/defects", h.ReportDefect)
	}
}

// ReceiveItem registers a new unit as in stock
// @Summary      Receive inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ReceiveItemRequest  true  "Receive Item Payload"
// @Success      201      {object}  response.Response{data=model.InventoryItem}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) ReceiveItem(c *gin.Context) {
	var req service.ReceiveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	item, err := h.inventoryService.ReceiveItem(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, item)
}

// ListItems handles retrieving paginated inventory units
// @Summary      List inventory items
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        storeId  query     string  false  "Store"
// @Param        status   query     string  false  "in_stock, defective or sold"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=response.Page}
// @Failure      400      {object}  response.Response
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListItems(c *gin.Context) {
	var q inventoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badPayload(c, err)
		return
	}

	p := pagination.Parse(c)
	filter := repository.InventoryFilter{StoreID: q.StoreID, Status: model.InventoryStatus(q.Status)}
	items, total, err := h.inventoryService.ListItems(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, items, total, p)
}

// GetItem returns one unit by barcode
// @Summary      Get inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        barcode  path      string  true  "Barcode"
// @Success      200      {object}  response.Response{data=model.InventoryItem}
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/{barcode} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.inventoryService.GetItem(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, item)
}

// SellItem marks an in-stock unit as sold
// @Summary      Sell inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        barcode  path      string  true  "Barcode"
// @Success      200      {object}  response.Response{data=model.InventoryItem}
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/inventory/{barcode}/sell [post]
func (h *InventoryHandler) SellItem(c *gin.Context) {
	item, err := h.inventoryService.MarkSold(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, item)
}

// ReportDefect flags a unit defective and stores the whole payload as the defect details
// @Summary      Report defect
// @Description  The payload must carry "barcode"; every other field is kept verbatim
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      object  true  "Defect Payload"
// @Success      201      {object}  response.Response{data=model.DefectRecord}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/defects [post]
func (h *InventoryHandler) ReportDefect(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		badPayload(c, err)
		return
	}

	record, err := h.inventoryService.ReportDefect(c.Request.Context(), payload)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, record)
}

// ListDefects returns defect records, optionally for one barcode
// @Summary      List defects
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        barcode  query     string  false  "Barcode"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=response.Page}
// @Router       /api/defects [get]
func (h *InventoryHandler) ListDefects(c *gin.Context) {
	p := pagination.Parse(c)
	records, total, err := h.inventoryService.ListDefects(c.Request.Context(), c.Query("barcode"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, records, total, p)
}
