package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"erpadmin/internal/auth"
	"erpadmin/internal/config"
	"erpadmin/internal/lock"
	"erpadmin/internal/middleware"
	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	"erpadmin/internal/service"
	"erpadmin/internal/testutil"
	"erpadmin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

type testServer struct {
	router *gin.Engine
	token  string
	orders service.OrderService
	items  service.InventoryService
}

func newTestServer(t *testing.T, role string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	db := testutil.NewDB(t)
	tokens := auth.NewTokens(config.JWTConfig{Secret: "test-secret", Issuer: "erpadmin-test", TokenTTL: time.Hour})
	auditService := service.NewAuditService(repository.NewAuditRepository(db))
	infra := service.Infra{
		Tx:     repository.NewTransactionManager(db),
		Audit:  auditService,
		Locker: lock.NewLocal(time.Second),
		Log:    logger.Nop(),
	}
	inventoryRepo := repository.NewInventoryRepository(db)
	taxService := service.NewTaxService(infra, repository.NewTaxRuleRepository(db))
	orderService := service.NewOrderService(infra, repository.NewOrderRepository(db), taxService)
	inventoryService := service.NewInventoryService(infra, inventoryRepo, repository.NewDefectRepository(db))
	dispatchService := service.NewDispatchService(infra, repository.NewDispatchRepository(db), inventoryRepo)
	userService := service.NewUserService(infra, repository.NewUserRepository(db), tokens)

	authz := middleware.NewAuth(tokens, nil)
	router := gin.New()
	root := router.Group("")
	NewUserHandler(userService, authz, 3600).RegisterRoutes(root)
	NewOrderHandler(orderService, authz).RegisterRoutes(root)
	NewInventoryHandler(inventoryService, authz).RegisterRoutes(root)
	NewDispatchHandler(dispatchService, authz).RegisterRoutes(root)
	NewTaxHandler(taxService, authz).RegisterRoutes(root)
	NewAuditHandler(auditService, authz).RegisterRoutes(root)

	token, err := tokens.Issue(auth.Session{UserID: uuid.New(), Username: "tester", Role: role})
	require.NoError(t, err)
	return &testServer{router: router, token: token, orders: orderService, items: inventoryService}
}

func (s *testServer) do(t *testing.T, method, target string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) seedOrder(t *testing.T) *model.Order {
	t.Helper()
	vat := decimal.NewFromInt(5)
	order, err := s.orders.CreateOrder(t.Context(), service.CreateOrderRequest{
		OrderCode:     "ORD-" + uuid.NewString()[:8],
		Products:      []service.OrderLineRequest{{ProductName: "Saree A", Qty: 3, Price: decimal.NewFromInt(1000)}},
		VATRate:       &vat,
		TransportCost: decimal.NewFromInt(100),
		TotalPaid:     decimal.NewFromInt(2000),
	})
	require.NoError(t, err)
	return order
}

func TestExchangeMissingOrderID(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)

	status, env := s.do(t, http.MethodPost, "/api/orders/exchange", map[string]any{"removedProducts": []any{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Equal(t, "error", env.Status)
}

func TestExchangeMalformedBody(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)

	status, _ := s.do(t, http.MethodPost, "/api/orders/exchange", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestExchangeUnknownOrder(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)

	status, env := s.do(t, http.MethodPost, "/api/orders/exchange", map[string]any{"orderId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestExchangeSuccess(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)
	order := s.seedOrder(t)

	status, env := s.do(t, http.MethodPost, "/api/orders/exchange", map[string]any{
		"orderId":             order.ID.String(),
		"removedProducts":     []map[string]any{{"productId": order.Products[0].ID.String(), "quantity": 3}},
		"replacementProducts": []map[string]any{{"name": "Saree B", "quantity": 2, "price": 800}},
	})
	require.Equal(t, http.StatusOK, status, env.Error)

	var result struct {
		Order      model.Order     `json:"order"`
		Difference decimal.Decimal `json:"difference"`
		TotalDue   decimal.Decimal `json:"totalDue"`
		Note       string          `json:"note"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, decimal.NewFromInt(-1470).Equal(result.Difference))
	assert.True(t, decimal.NewFromInt(-220).Equal(result.TotalDue))
	assert.Equal(t, model.NoteRefund, result.Note)
	require.Len(t, result.Order.Products, 1)
	assert.Equal(t, "Saree B", result.Order.Products[0].ProductName)

	status, env = s.do(t, http.MethodGet, "/api/orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, status)
	var stored model.Order
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Len(t, stored.ExchangeHistory, 1)
}

func TestRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)
	s.token = ""

	status, env := s.do(t, http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestStaffCannotApproveDispatch(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)

	status, _ := s.do(t, http.MethodPut, "/api/dispatches/"+uuid.NewString()+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDispatchInvalidTransition(t *testing.T) {
	s := newTestServer(t, model.RoleManager)

	status, env := s.do(t, http.MethodPost, "/api/dispatches", map[string]any{
		"sourceStore":      "store-a",
		"destinationStore": "store-b",
		"items":            []map[string]any{{"productName": "Scarf", "quantity": 2, "unitPrice": 10}},
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var dispatch model.Dispatch
	require.NoError(t, json.Unmarshal(env.Data, &dispatch))
	base := "/api/dispatches/" + dispatch.ID.String()

	for _, step := range []string{"approve", "ship", "deliver"} {
		status, env = s.do(t, http.MethodPut, base+"/"+step, nil)
		require.Equal(t, http.StatusOK, status, step+": "+env.Error)
	}

	status, env = s.do(t, http.MethodPut, base+"/approve", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "STATE_CONFLICT", env.Code)
}

func TestCreateDispatchSameStoreRejectedByBinding(t *testing.T) {
	s := newTestServer(t, model.RoleManager)

	status, env := s.do(t, http.MethodPost, "/api/dispatches", map[string]any{
		"sourceStore":      "store-a",
		"destinationStore": "store-a",
		"items":            []map[string]any{{"productName": "Scarf", "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestListDispatchesRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)

	status, _ := s.do(t, http.MethodGet, "/api/dispatches?status=shipped", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := s.do(t, http.MethodGet, "/api/dispatches?status=pending", nil)
	assert.Equal(t, http.StatusOK, status)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Zero(t, page.Total)
}

func TestReportDefectOverHTTP(t *testing.T) {
	s := newTestServer(t, model.RoleStaff)

	status, env := s.do(t, http.MethodPost, "/api/defects", map[string]any{"barcode": "GHOST", "issue": "torn"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	_, err := s.items.ReceiveItem(t.Context(), service.ReceiveItemRequest{Barcode: "BC-1", ProductName: "Saree", StoreID: "store-a"})
	require.NoError(t, err)

	status, env = s.do(t, http.MethodPost, "/api/defects", map[string]any{"barcode": "BC-1", "issue": "torn", "photos": []string{"a.jpg"}})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var record model.DefectRecord
	require.NoError(t, json.Unmarshal(env.Data, &record))
	assert.Equal(t, "torn", record.Details["issue"])

	status, env = s.do(t, http.MethodGet, "/api/inventory/BC-1", nil)
	require.Equal(t, http.StatusOK, status)
	var item model.InventoryItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, model.InventoryDefective, item.Status)
}

func TestLoginSetsCookie(t *testing.T) {
	s := newTestServer(t, model.RoleAdmin)

	status, env := s.do(t, http.MethodPost, "/api/employees", map[string]any{
		"username": "mina", "email": "mina@example.com", "phone": "0900", "password": "secret1", "role": "staff",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	raw, err := json.Marshal(map[string]string{"email": "mina@example.com", "password": "secret1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}
