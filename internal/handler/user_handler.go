package handler

import (
	"erpadmin/internal/middleware"
	"erpadmin/internal/service"
	"erpadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	auth        *middleware.Auth
	tokenMaxAge int
}

// NewUserHandler sets up the routing dependencies for employee endpoints
func NewUserHandler(userService service.UserService, auth *middleware.Auth, tokenMaxAge int) *UserHandler {
	return &UserHandler{userService: userService, auth: auth, tokenMaxAge: tokenMaxAge}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public routes
	router.POST("/login", h.Login)

	// Me route (authenticated, any role)
	router.GET("/me", h.auth.RequireRole(), h.GetMe)

	employees := router.Group("/api/employees")
	{
		employees.GET("", h.auth.RequireRole("admin", "manager"), h.ListUsers)
		employees.POST("", h.auth.RequireRole("admin"), h.CreateUser)
	}
}

// Login issues an access token for valid credentials
// @Summary      Login
// @Description  Verifies email and password, returns a token and sets the access_token cookie
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Login Payload"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	tokens, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	middleware.SetTokenCookie(c, tokens.Token, h.tokenMaxAge)
	ok(c, tokens)
}

// GetMe returns the authenticated employee
// @Summary      Current user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.Me(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, user)
}

// CreateUser creates an employee account
// @Summary      Create employee
// @Description  Creates a new employee validating constraints and hashing password
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "Create Employee Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/employees [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, user)
}

// ListUsers returns employees
// @Summary      List employees
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/employees [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	page(c, users, total, p)
}
