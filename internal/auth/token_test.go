package auth

import (
	"context"
	"testing"
	"time"

	"erpadmin/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() *Tokens {
	return NewTokens(config.JWTConfig{Secret: "test-secret", Issuer: "erpadmin", TokenTTL: time.Hour})
}

func TestIssueAndParse(t *testing.T) {
	tokens := testTokens()
	session := Session{UserID: uuid.New(), Username: "asha", Role: "manager"}

	raw, err := tokens.Issue(session)
	require.NoError(t, err)

	got, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	tokens := testTokens()
	raw, err := tokens.Issue(Session{UserID: uuid.New(), Role: "staff"})
	require.NoError(t, err)

	other := NewTokens(config.JWTConfig{Secret: "other", Issuer: "erpadmin", TokenTTL: time.Hour})
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestActorID(t *testing.T) {
	assert.Nil(t, ActorID(context.Background()))

	id := uuid.New()
	ctx := WithSession(context.Background(), Session{UserID: id})
	require.NotNil(t, ActorID(ctx))
	assert.Equal(t, id, *ActorID(ctx))
}
