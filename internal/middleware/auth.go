// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/auth"
	"github.com/hitoshi/farmsconnect/internal/model"
	"github.com/hitoshi/farmsconnect/internal/revocation"
)

// 認証失敗時のメッセージ
const (
	msgNoToken      = "No token provided"
	msgRevokedToken = "Token is invalid"
	msgInvalidToken = "Invalid or expired token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey = contextKey("user_id")
	tokenContextKey  = contextKey("access_token")
)

// tokenInfo は認証に使われたトークンとその有効期限。
type tokenInfo struct {
	raw       string
	expiresAt time.Time
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
//
// 失効済みのトークンは署名が有効でも拒否する。
// 検証に成功した場合はユーザーIDとトークンをリクエストコンテキストに注入する。
func NewAuthMiddleware(verifier auth.TokenVerifier, registry revocation.Registry) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, msgNoToken)
				return
			}

			revoked, err := registry.IsRevoked(r.Context(), token)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to check token revocation",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if revoked {
				writeUnauthorized(w, msgRevokedToken)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, msgInvalidToken)
				return
			}

			recordLogUserID(r.Context(), claims.UserID.String())
			ctx := ContextWithUserID(r.Context(), claims.UserID)
			ctx = ContextWithToken(ctx, token, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークンを取り出す。
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(message))
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// TokenFromContext は認証に使われたトークンとその有効期限を返す。
func TokenFromContext(ctx context.Context) (string, time.Time, bool) {
	info, ok := ctx.Value(tokenContextKey).(tokenInfo)
	if !ok || info.raw == "" {
		return "", time.Time{}, false
	}
	return info.raw, info.expiresAt, true
}

// ContextWithToken はコンテキストにトークンを注入する。
func ContextWithToken(ctx context.Context, token string, expiresAt time.Time) context.Context {
	return context.WithValue(ctx, tokenContextKey, tokenInfo{raw: token, expiresAt: expiresAt})
}
