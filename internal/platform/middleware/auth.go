// Package middleware holds the HTTP edge: it turns a bearer token into the
// actor descriptor the core consumes and stamps each request with an ID and
// a single clock reading. The core never sees a token.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rtscore/pkg/domain"
	"rtscore/pkg/requestcontext"
)

// actorClaims is the token payload issued by the session layer.
type actorClaims struct {
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens and produces actor descriptors.
type Authenticator struct {
	signingKey []byte
	logger     *slog.Logger
}

func NewAuthenticator(signingKey string, logger *slog.Logger) *Authenticator {
	return &Authenticator{signingKey: []byte(signingKey), logger: logger}
}

// actorFromToken parses and validates the token, returning the actor it
// describes.
func (a *Authenticator) actorFromToken(tokenString string) (domain.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &actorClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	claims, ok := token.Claims.(*actorClaims)
	if !ok {
		return domain.Actor{}, errors.New("unexpected claims type")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("invalid subject: %w", err)
	}
	actor := domain.Actor{ID: domain.UserID(userID), Role: domain.Role(claims.Role)}
	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return domain.Actor{}, fmt.Errorf("invalid tenant claim: %w", err)
		}
		t := domain.TenantID(tenantID)
		actor.Tenant = &t
	}
	if err := actor.Validate(); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

// RequireAuth rejects requests without a valid bearer token and injects the
// actor into the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			a.logger.WarnContext(ctx, "unauthorized access, missing token",
				"request_id", requestcontext.RequestID(ctx),
			)
			writeUnauthorized(w, "Missing or invalid Authorization header")
			return
		}

		actor, err := a.actorFromToken(token)
		if err != nil {
			a.logger.WarnContext(ctx, "unauthorized access, invalid token",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
	})
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":"unauthorized","error_description":%q}`, description)
}
