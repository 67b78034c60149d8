// Package auth issues and verifies access tokens and carries the
// authenticated session through request contexts.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Session is the authenticated caller of a request.
type Session struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx, if any.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// ActorID returns the caller's user id for audit records, nil for system calls.
func ActorID(ctx context.Context) *uuid.UUID {
	s, ok := SessionFrom(ctx)
	if !ok || s.UserID == uuid.Nil {
		return nil
	}
	id := s.UserID
	return &id
}
