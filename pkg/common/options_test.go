package common

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	t.Parallel()

	t.Run("fills unset fields", func(t *testing.T) {
		t.Parallel()

		opts := Options{Endpoint: "ws://localhost:4000/graphql"}.WithDefaults()

		assert.Equal(t, http.DefaultClient, opts.HTTPClient)
		assert.Equal(t, DefaultAckTimeout, opts.AckTimeout)
		assert.Equal(t, DefaultKeepAliveInterval, opts.KeepAliveInterval)
		assert.Equal(t, DefaultWriteTimeout, opts.WriteTimeout)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		t.Parallel()

		opts := Options{
			AckTimeout:        1,
			KeepAliveInterval: 2,
			WriteTimeout:      3,
		}.WithDefaults()

		assert.EqualValues(t, 1, opts.AckTimeout)
		assert.EqualValues(t, 2, opts.KeepAliveInterval)
		assert.EqualValues(t, 3, opts.WriteTimeout)
	})

	t.Run("negative keep-alive interval survives as disabled", func(t *testing.T) {
		t.Parallel()

		opts := Options{KeepAliveInterval: -1}.WithDefaults()

		assert.EqualValues(t, -1, opts.KeepAliveInterval)
	})
}
