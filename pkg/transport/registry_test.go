package transport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NextID(t *testing.T) {
	t.Parallel()

	t.Run("ids are unique under concurrency", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		const n = 100
		ids := make(chan string, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ids <- r.NextID()
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[string]bool, n)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)
	})

	t.Run("ids from distinct registries never collide", func(t *testing.T) {
		t.Parallel()

		a, b := NewRegistry(), NewRegistry()
		assert.NotEqual(t, a.NextID(), b.NextID())
	})
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	t.Run("duplicate id is rejected", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		id := r.NextID()

		require.NoError(t, r.Register(id, &Subscription{id: id}))
		assert.ErrorIs(t, r.Register(id, &Subscription{id: id}), ErrSubscriptionExists)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()

	t.Run("second remove reports false", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		id := r.NextID()
		require.NoError(t, r.Register(id, &Subscription{id: id}))

		sub, ok := r.Remove(id)
		assert.True(t, ok)
		assert.Equal(t, id, sub.id)

		_, ok = r.Remove(id)
		assert.False(t, ok)
	})
}

func TestRegistry_DrainAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for i := 0; i < 5; i++ {
		id := r.NextID()
		require.NoError(t, r.Register(id, &Subscription{id: id}))
	}

	subs := r.DrainAll()

	assert.Len(t, subs, 5)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.DrainAll())
}
