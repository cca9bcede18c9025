package middleware

import (
	"context"
	"time"

	"github.com/benvon/corsgate/internal/models"
	"github.com/benvon/corsgate/internal/request"
)

// SetAdminInContext is a helper function for testing - sets admin claims for subject in context
// This is exported so other test packages can use it
func SetAdminInContext(ctx context.Context, subject string) context.Context {
	now := time.Now()
	return request.WithAdmin(ctx, &models.AdminClaims{
		Subject:   subject,
		Issuer:    AdminTokenIssuer,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
}
