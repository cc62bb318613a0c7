package security

import (
	"community-platform/internal/model"
	"community-platform/internal/model/requestresponse"
	"community-platform/internal/util"
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
	bearerPrefix              = "Bearer "
)

type AccessTokenVerifier interface {
	VerifyAccessToken(tokenStr string) (*Claims, error)
}

// BearerToken : значение заголовка Authorization без префикса Bearer
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate : id пользователя по access токену без обращения к БД
func Authenticate(r *http.Request, verifier AccessTokenVerifier) (*Claims, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, model.ErrUnauthorized
	}

	claims, err := verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func JWTMiddleware(verifier AccessTokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims, err := Authenticate(request, verifier)
			if err != nil {
				zap.L().Debug("запрос без валидного access токена", zap.String("path", request.URL.Path), zap.Error(err))
				if errors.Is(err, model.ErrUnauthorized) {
					util.HandleError(writer, http.StatusUnauthorized, requestresponse.CodeUnauthorized, "требуется авторизация")
				} else {
					util.HandleError(writer, http.StatusUnauthorized, requestresponse.CodeInvalidToken, "невалидный токен")
				}
				return
			}

			next.ServeHTTP(writer, request.WithContext(WithClaims(request.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, model.ErrUnauthorized
	}
	return claims, nil
}
