package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAgencyID contextKey = "agency_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AgencyIDFromContext is only set for external agency staff.
func AgencyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAgencyID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, string(role))
}

// WithAgencyID injects the external agency of the caller.
func WithAgencyID(ctx context.Context, agencyID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAgencyID, agencyID)
}

// WithIdentity seeds all three identity values at once; tests use it to fake
// an authenticated request.
func WithIdentity(ctx context.Context, userID uuid.UUID, role enums.UserRole, agencyID *uuid.UUID) context.Context {
	ctx = WithUserID(ctx, userID.String())
	ctx = WithRole(ctx, role)
	if agencyID != nil {
		ctx = WithAgencyID(ctx, agencyID.String())
	}
	return ctx
}
