package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

// TokenValidator - проверка токенов. Реализуется BaseValidator.
type TokenValidator interface {
	VerifyToken(tokenStr string) (*Claims, error)
}

// NewMiddleware пропускает только запросы с валидным токеном и нужным scope.
// Пустой scope - достаточно валидной подписи.
func NewMiddleware(v TokenValidator, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err), zap.String("trace_id", infra.TraceID(r.Context())))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if scope != "" && !claims.HasScope(scope) {
				logger.Warn("missing scope", zap.String("user_id", claims.Submitter()), zap.String("scope", scope))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			// Прокидываем пользователя в контекст
			ctx := infra.WithUserID(r.Context(), claims.Submitter())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
