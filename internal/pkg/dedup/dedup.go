package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskhub:dedup:task:"

// Deduplicator 利用 Redis SetNX 在时间窗口内识别重复的任务提交。
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDeduplicator 创建 Deduplicator，ttl 非法时回退为 10 秒。
func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Deduplicator{
		rdb: rdb,
		ttl: ttl,
	}
}

// Fingerprint 根据归属用户和任务字段生成指纹。
//
// 字段之间以 NUL 分隔后取 sha256，避免字段拼接歧义。
func Fingerprint(ownerID uint, fields ...string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d", ownerID)
	for _, f := range fields {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IsDuplicate 判断指纹是否在窗口内出现过，首次出现会占位。
func (d *Deduplicator) IsDuplicate(ctx context.Context, fingerprint string) (bool, error) {
	if d == nil || d.rdb == nil || fingerprint == "" {
		return false, nil
	}
	key := keyPrefix + fingerprint
	ok, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}

// Delete 释放指纹占位，允许立即重新提交。
func (d *Deduplicator) Delete(ctx context.Context, fingerprint string) error {
	if d == nil || d.rdb == nil || fingerprint == "" {
		return nil
	}
	key := keyPrefix + fingerprint
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}
