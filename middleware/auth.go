package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/arenaprime/bracket-engine/utils"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const organizerContextKey contextKey = "organizer"

var ErrNoOrganizerInContext = errors.New("organizer claims not found in context")

// Authenticate пропускает запрос, если он несёт либо JWT организатора
// (Bearer, HS256, claim role=organizer), либо статический ключ вебхука
// в заголовке X-Organizer-Key, сверяемый с bcrypt-хешем из конфигурации.
func Authenticate(jwtSecret []byte, organizerKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-Organizer-Key"); key != "" && organizerKeyHash != "" {
				if utils.CheckOrganizerKey(key, organizerKeyHash) {
					ctx := context.WithValue(r.Context(), organizerContextKey, jwt.MapClaims{"role": "organizer"})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return jwtSecret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), organizerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole требует, чтобы claims содержали одну из перечисленных ролей.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(organizerContextKey).(jwt.MapClaims)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			role, _ := claims["role"].(string)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// ClaimsFromContext достаёт claims организатора из контекста запроса.
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(organizerContextKey).(jwt.MapClaims)
	if !ok {
		return nil, ErrNoOrganizerInContext
	}
	return claims, nil
}
