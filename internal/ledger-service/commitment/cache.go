package commitment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
)

// Cached envolve um Provider com cache Redis de TTL curto, pra não bater no
// resolver a cada aposta. TTL curto demais ainda vale: a janela de status
// defasado é coberta pela idempotência da liquidação e pelo lock no store.
type Cached struct {
	Next Provider
	Rdb  *redis.Client
	TTL  time.Duration
}

func NewCached(next Provider, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{Next: next, Rdb: rdb, TTL: ttl}
}

func key(id string) string { return "commitment:current:" + id }

func (c *Cached) Get(ctx context.Context, id string) (domain.Commitment, error) {
	if raw, err := c.Rdb.Get(ctx, key(id)).Bytes(); err == nil {
		var cm domain.Commitment
		if jerr := json.Unmarshal(raw, &cm); jerr == nil {
			return cm, nil
		}
		// payload corrompido: cai pro resolver e regrava
	}

	cm, err := c.Next.Get(ctx, id)
	if err != nil {
		return domain.Commitment{}, err
	}

	if b, jerr := json.Marshal(cm); jerr == nil {
		_ = c.Rdb.Set(ctx, key(id), b, c.TTL).Err()
	}
	return cm, nil
}
