package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/corsgate/internal/models"
	"github.com/benvon/corsgate/internal/request"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

// AdminTokenIssuer is the iss claim on admin tokens.
const AdminTokenIssuer = "corsgate"

const clockSkew = 30 * time.Second

// AdminAuth validates HS256 bearer tokens minted by IssueAdminToken and puts
// the claims in the request context.
func AdminAuth(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			claims, err := VerifyAdminToken(secret, parts[1])
			if err != nil {
				logger.Debug("admin_token_rejected", zap.Error(err))
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithAdmin(r.Context(), claims)))
		})
	}
}

// VerifyAdminToken checks signature, issuer and expiry and returns the claims.
func VerifyAdminToken(secret []byte, token string) (*models.AdminClaims, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(AdminTokenIssuer),
		jwt.WithAcceptableSkew(clockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("verify admin token: %w", err)
	}
	if tok.Subject() == "" {
		return nil, fmt.Errorf("verify admin token: missing subject")
	}
	return &models.AdminClaims{
		Subject:   tok.Subject(),
		TokenID:   tok.JwtID(),
		Issuer:    tok.Issuer(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}, nil
}

// IssueAdminToken mints an HS256 admin token for subject, valid for ttl.
func IssueAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("admin token secret is empty")
	}
	if subject == "" {
		return "", fmt.Errorf("admin token subject is empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("admin token ttl must be positive")
	}
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(AdminTokenIssuer).
		Subject(subject).
		JwtID(uuid.NewString()).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build admin token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return string(signed), nil
}
