package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"erpadmin/internal/auth"
	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	pkgerrors "erpadmin/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin manager staff"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse is a User without sensitive fields
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt string    `json:"createdAt"`
}

// UserService covers employee accounts and login
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	// EnsureAdmin creates the bootstrap admin unless the username or email is taken.
	EnsureAdmin(ctx context.Context, req CreateUserRequest) error
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Me(ctx context.Context) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	infra  Infra
	repo   repository.UserRepository
	tokens *auth.Tokens
}

// NewUserService returns a new instance of UserService
func NewUserService(infra Infra, repo repository.UserRepository, tokens *auth.Tokens) UserService {
	return &userService{infra: infra, repo: repo, tokens: tokens}
}

func validateRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleManager || role == model.RoleStaff
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	if !validateRole(req.Role) {
		return nil, invalid("invalid role: must be admin, manager or staff")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash password")
	}

	user := &model.User{
		Username: strings.TrimSpace(req.Username),
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		Role:     req.Role,
	}

	err = s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		taken, err := s.repo.ExistsByUsernameOrEmail(txCtx, user.Username, user.Email)
		if err != nil {
			return storageError(err, "employee")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "username or email already exists")
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return storageError(err, "employee")
		}
		return s.infra.Audit.Record(txCtx, model.ActionCreateEmployee, user.ID.String(), user.Username, map[string]string{"role": user.Role})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) EnsureAdmin(ctx context.Context, req CreateUserRequest) error {
	req.Role = model.RoleAdmin
	if req.Phone == "" {
		req.Phone = "-"
	}
	_, err := s.CreateUser(ctx, req)
	if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
		return nil
	}
	return err
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	invalidLogin := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidLogin
		}
		return nil, storageError(err, "employee")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, invalidLogin
	}

	token, err := s.tokens.Issue(auth.Session{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate token")
	}

	return &TokenResponse{Token: token}, nil
}

func (s *userService) Me(ctx context.Context) (*UserResponse, error) {
	session, ok := auth.SessionFrom(ctx)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, storageError(err, "employee")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storageError(err, "employee")
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}
