// Package session carries the authenticated chat identity through request
// context instead of an ambient current-user global.
package session

import (
	"context"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

// Session is the identity attached to a request or subscription.
type Session struct {
	Username        string
	CustomName      string
	Role            chat.Role
	ProfileImageURL string
}

type key struct{}

// NewContext returns ctx with the session attached.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, key{}, s)
}

// FromContext extracts the session placed by NewContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(key{}).(Session)
	return s, ok
}
