package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

type contextKey string

const claimsKey contextKey = "claims"

// requireToken verifies the bearer token and stashes its claims.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, errorsx.Wrap(fmt.Errorf("missing bearer token"), errorsx.ReasonSessionInvalidToken))
			return
		}
		claims, err := s.issuer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) (session.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(session.Claims)
	return claims, ok
}
