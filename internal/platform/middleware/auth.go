package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/httputil"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

// TokenValidator checks a bearer token and returns its subject.
type TokenValidator interface {
	Subject(token string) (string, error)
}

type contextKeySubject struct{}

// GetSubject returns the authenticated token subject, or "".
func GetSubject(ctx context.Context) string {
	subject, ok := ctx.Value(contextKeySubject{}).(string)
	if !ok {
		return ""
	}
	return subject
}

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// header.
func RequireBearer(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := chimw.GetReqID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				httputil.WriteError(w, fmt.Errorf("missing or invalid Authorization header: %w", sentinel.ErrUnauthenticated))
				return
			}

			subject, err := validator.Subject(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, fmt.Errorf("invalid or expired token: %w", sentinel.ErrUnauthenticated))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, contextKeySubject{}, subject)))
		})
	}
}
