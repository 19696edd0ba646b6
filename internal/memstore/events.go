package memstore

import (
	"context"
	"sync"
)

// Broker is the single-process stand-in for redisx.CartEvents.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan string]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan string]struct{}{}}
}

func (b *Broker) Publish(_ context.Context, accountID, change string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[accountID] {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, accountID string) (<-chan string, func()) {
	ch := make(chan string, 8)
	b.mu.Lock()
	if b.subs[accountID] == nil {
		b.subs[accountID] = map[chan string]struct{}{}
	}
	b.subs[accountID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[accountID], ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ch, stop
}

// Idempotency mirrors redisx.Idempotency without expiry.
type Idempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewIdempotency() *Idempotency {
	return &Idempotency{keys: map[string]string{}}
}

func (i *Idempotency) Lookup(_ context.Context, accountID, key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.keys[accountID+"\x00"+key]
	return id, ok, nil
}

func (i *Idempotency) Remember(_ context.Context, accountID, key, orderID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[accountID+"\x00"+key] = orderID
	return nil
}
