package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// Broadcaster publica payloads num canal pub/sub para consumo da UI
// (ex.: resultado de liquidação de um commitment)
type Broadcaster struct {
	r *redis.Client
}

func NewBroadcaster(r *redis.Client) *Broadcaster {
	return &Broadcaster{r: r}
}

func (b *Broadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.r.Publish(ctx, channel, payload).Err()
}
