package service

import (
	"context"
	"testing"

	"erpadmin/internal/auth"
	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	pkgerrors "erpadmin/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.userSvc.CreateUser(ctx, CreateUserRequest{
		Username: "mina", Email: " Mina@Example.com ", Phone: "0900", Password: "secret1", Role: model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, "mina@example.com", created.Email)

	tokens, err := h.userSvc.Login(ctx, LoginUserRequest{Email: "mina@example.com", Password: "secret1"})
	require.NoError(t, err)

	session, err := h.tokens.Parse(tokens.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, session.UserID)
	assert.Equal(t, model.RoleStaff, session.Role)

	me, err := h.userSvc.Me(auth.WithSession(ctx, session))
	require.NoError(t, err)
	assert.Equal(t, "mina", me.Username)

	_, err = h.userSvc.Login(ctx, LoginUserRequest{Email: "mina@example.com", Password: "wrong"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	_, err = h.userSvc.Login(ctx, LoginUserRequest{Email: "ghost@example.com", Password: "secret1"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestCreateUserConflictsAndRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := CreateUserRequest{Username: "mina", Email: "mina@example.com", Phone: "0900", Password: "secret1", Role: model.RoleManager}

	_, err := h.userSvc.CreateUser(ctx, req)
	require.NoError(t, err)

	_, err = h.userSvc.CreateUser(ctx, req)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	req.Username, req.Email, req.Role = "other", "other@example.com", "owner"
	_, err = h.userSvc.CreateUser(ctx, req)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := CreateUserRequest{Username: "admin", Email: "admin@example.com", Password: "changeme"}

	require.NoError(t, h.userSvc.EnsureAdmin(ctx, req))
	require.NoError(t, h.userSvc.EnsureAdmin(ctx, req))

	users, total, err := h.userSvc.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
}

func TestMeWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.userSvc.Me(context.Background())
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestTaxRuleOverlapConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.taxSvc.CreateTaxRule(ctx, CreateTaxRuleRequest{TaxType: model.TaxTypeVAT, Rate: "0.10", EffectiveFrom: "2024-01-01", EffectiveTo: "2024-12-31"})
	require.NoError(t, err)

	_, err = h.taxSvc.CreateTaxRule(ctx, CreateTaxRuleRequest{TaxType: model.TaxTypeVAT, Rate: "0.08", EffectiveFrom: "2024-06-01"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	active, err := h.taxSvc.GetActiveTaxRate(ctx, model.TaxTypeVAT)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "0.1000", active.Rate)

	logs, total, err := h.auditSvc.GetAuditLogs(ctx, repository.AuditFilter{}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.ActionCreateTaxRule, logs[0].Action)
}
