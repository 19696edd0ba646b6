package redisx

import "time"

const (
	// Idempotency place order: idem:order:place:{account_id}:{key} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Channel perubahan cart: cart:{account_id}, payload "updated" | "cleared"
	ChannelCart = "cart:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
