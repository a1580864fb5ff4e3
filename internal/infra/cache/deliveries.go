package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "webhook:delivery:"

// DeliveryCache marca entregas de webhook já processadas. O Cal.com reenvia
// o mesmo corpo quando não recebe 2xx a tempo.
type DeliveryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeliveryCache(rdb *redis.Client, ttl time.Duration) *DeliveryCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryCache{rdb: rdb, ttl: ttl}
}

// FirstDelivery devolve true só na primeira vez que o corpo aparece dentro do TTL.
func (c *DeliveryCache) FirstDelivery(ctx context.Context, body []byte) (bool, error) {
	return c.rdb.SetNX(ctx, DeliveryKey(body), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
}

// Forget libera a entrega para ser reprocessada (usado quando o processamento falha).
func (c *DeliveryCache) Forget(ctx context.Context, body []byte) error {
	return c.rdb.Del(ctx, DeliveryKey(body)).Err()
}

func DeliveryKey(body []byte) string {
	sum := sha256.Sum256(body)
	return deliveryKeyPrefix + hex.EncodeToString(sum[:])
}
