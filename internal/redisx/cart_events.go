package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CartEvents fans cart change notices out over redis pub/sub so every API
// instance can push them to its websocket clients.
type CartEvents struct{ RDB *redis.Client }

func (e *CartEvents) Publish(ctx context.Context, accountID, change string) error {
	return e.RDB.Publish(ctx, fmt.Sprintf(ChannelCart, accountID), change).Err()
}

// Subscribe streams notices for one account until ctx ends or stop is called.
func (e *CartEvents) Subscribe(ctx context.Context, accountID string) (<-chan string, func()) {
	ps := e.RDB.Subscribe(ctx, fmt.Sprintf(ChannelCart, accountID))
	out := make(chan string, 8)
	go func() {
		defer close(out)
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				default:
				}
			}
		}
	}()
	return out, func() { _ = ps.Close() }
}

type Idempotency struct{ RDB *redis.Client }

func (i *Idempotency) Lookup(ctx context.Context, accountID, key string) (string, bool, error) {
	id, err := i.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderPlace, accountID, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, accountID, key, orderID string) error {
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, accountID, key), orderID, TTLIdempotency).Err()
}
