package common

import (
	"net/http"
	"time"
)

// Subprotocol selects the GraphQL-over-WebSocket dialect requested during
// the upgrade handshake.
type Subprotocol string

const (
	SubprotocolAuto        Subprotocol = ""                     // prefer modern, fall back to legacy
	SubprotocolTransportWS Subprotocol = "graphql-transport-ws" // modern dialect
	SubprotocolLegacyWS    Subprotocol = "graphql-ws"           // legacy dialect, deprecated
)

// Defaults applied by Options.WithDefaults.
const (
	DefaultAckTimeout        = 10 * time.Second
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
)

// Options configures the WebSocket connection.
type Options struct {
	// Endpoint is the ws:// or wss:// GraphQL URL.
	Endpoint string

	// Headers are added to the upgrade request.
	Headers http.Header

	// HTTPClient performs the upgrade request. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Subprotocol pins the dialect. SubprotocolAuto negotiates with the server.
	Subprotocol Subprotocol

	// AckTimeout bounds the wait for connection_ack after connection_init.
	AckTimeout time.Duration

	// KeepAliveInterval is the client ping cadence while connected.
	// Zero selects DefaultKeepAliveInterval; a negative value disables
	// client-initiated keep-alive.
	KeepAliveInterval time.Duration

	// WriteTimeout bounds every single outbound frame write.
	WriteTimeout time.Duration
}

// WithDefaults returns a copy with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.AckTimeout == 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.KeepAliveInterval == 0 {
		o.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	return o
}
