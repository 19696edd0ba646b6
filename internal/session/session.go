// Package session carries the authenticated caller through request contexts.
package session

import "context"

const RoleAdmin = "admin"

type Session struct {
	AccountID string
	Email     string
	Role      string
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.AccountID != ""
}
