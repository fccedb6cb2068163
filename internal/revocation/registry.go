// Package revocation はログアウト済みトークンの失効レジストリを提供する。
//
// レジストリはプロセス起動時に1つ生成され、認証ミドルウェアと認証サービスに
// 注入される。エントリはトークン自身の有効期限まで保持され、それ以降は破棄される。
package revocation

import (
	"context"
	"time"
)

// Registry は失効済みトークンの集合。
// RevokeとIsRevokedは並行に呼び出してよい。
type Registry interface {
	// Revoke はトークンを失効させる。expiresAtはトークン自身の有効期限。
	// 既に失効済みのトークンに対しては何もしない（冪等）。
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked はトークンが失効済みかを返す。
	IsRevoked(ctx context.Context, token string) (bool, error)
}
