// Package auth resolves the current user. Sign-in itself happens elsewhere;
// this package only turns a request or process context into a user id.
package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when an operation needs a user and there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// UserResolver returns the id of the user a call is made for.
type UserResolver interface {
	CurrentUserID(ctx context.Context) (string, error)
}

type userIDKey struct{}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id stored by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	return userID, ok && userID != ""
}

// ContextResolver reads the user id placed in the context by Middleware.
type ContextResolver struct{}

// CurrentUserID implements UserResolver.
func (ContextResolver) CurrentUserID(ctx context.Context) (string, error) {
	if userID, ok := UserIDFromContext(ctx); ok {
		return userID, nil
	}
	return "", ErrNotAuthenticated
}

// StaticResolver always answers with the same user, for CLI tools and
// single-user installs. Any user id in the context takes precedence.
type StaticResolver struct {
	UserID string
}

// CurrentUserID implements UserResolver.
func (s StaticResolver) CurrentUserID(ctx context.Context) (string, error) {
	if userID, ok := UserIDFromContext(ctx); ok {
		return userID, nil
	}
	if strings.TrimSpace(s.UserID) == "" {
		return "", ErrNotAuthenticated
	}
	return s.UserID, nil
}
