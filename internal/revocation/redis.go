package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "farmsconnect:revoked:"

// RedisRegistry はRedisに失効トークンを保持するRegistry。
// キーのTTLをトークンの残り有効期間に合わせるため、期限切れのエントリは自動で消える。
// 複数プロセス間で共有され、再起動後も保持される。
type RedisRegistry struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRegistry はRedisRegistryを生成する。
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client, now: time.Now}
}

// NewRedisClient はREDIS_URL形式の接続文字列からクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Revoke はトークンのハッシュをキーとして残り有効期間のTTL付きで保存する。
// 有効期限を過ぎたトークンは保存しない。
func (r *RedisRegistry) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, redisKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("トークンの失効登録に失敗しました: %w", err)
	}
	return nil
}

// IsRevoked はトークンのキーが存在するかを返す。
func (r *RedisRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("トークンの失効確認に失敗しました: %w", err)
	}
	return n > 0, nil
}

// redisKey はトークンのSHA-256ハッシュからキーを生成する。
func redisKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

// compile-time interface check
var _ Registry = (*RedisRegistry)(nil)
