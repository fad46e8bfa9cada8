package transport

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrSubscriptionExists is returned when a correlation id is registered
// twice. NextID never hands out the same id, so hitting this is a
// programming error, not a runtime condition.
var ErrSubscriptionExists = errors.New("subscription id already registered")

// Registry is the concurrency-safe directory mapping correlation ids to
// active subscriptions. It is mutated from both the read loop and caller
// goroutines.
type Registry struct {
	prefix string
	seq    atomic.Uint64

	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{
		prefix: uuid.NewString(),
		subs:   make(map[string]*Subscription),
	}
}

// NextID returns a fresh correlation id, unique for the lifetime of the
// owning connection: a process-unique prefix plus a monotonic counter.
func (r *Registry) NextID() string {
	return r.prefix + "-" + strconv.FormatUint(r.seq.Add(1), 10)
}

// Register stores the mapping. A duplicate id is rejected with
// ErrSubscriptionExists, never overwritten.
func (r *Registry) Register(id string, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subs[id]; exists {
		return ErrSubscriptionExists
	}
	r.subs[id] = sub
	return nil
}

// Lookup fetches the subscription for id, if registered.
func (r *Registry) Lookup(id string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	return sub, ok
}

// Remove deletes and returns the entry. Idempotent: a second call for the
// same id reports false.
func (r *Registry) Remove(id string) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	return sub, ok
}

// DrainAll atomically removes and returns every entry. Used on teardown so
// force-completion cannot race new registrations.
func (r *Registry) DrainAll() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]*Subscription)
	return subs
}

// Len reports the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
