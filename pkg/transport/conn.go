package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/jensneuse/abstractlogger"
	"golang.org/x/sync/singleflight"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/protocol"
)

var (
	// ErrNotConnected is returned by Subscribe when the connection is not
	// established. The transport never dials implicitly; callers connect
	// first.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionClosed marks the forced completion every active
	// subscription receives when the socket fails or the remote closes.
	// Subscriptions ended by a local Disconnect complete cleanly instead.
	ErrConnectionClosed = errors.New("connection closed")
)

// deliverTimeout bounds the final delivery to a subscription whose consumer
// stopped reading during teardown.
const deliverTimeout = 100 * time.Millisecond

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn owns one physical WebSocket connection and multiplexes an arbitrary
// number of subscriptions over it. One read loop runs per connected cycle;
// all outbound frames are serialized through a single write mutex.
//
// An error frame terminates its subscription in both dialects; further
// frames for that id are dropped.
type Conn struct {
	opts     common.Options
	tokens   TokenProvider
	log      abstractlogger.Logger
	registry *Registry

	state        atomic.Int32
	connectGroup singleflight.Group

	// mu guards the per-cycle fields below and state transitions.
	mu            sync.Mutex
	ws            *websocket.Conn
	proto         protocol.Protocol
	readCancel    context.CancelFunc
	keepAliveStop chan struct{}

	writeMu sync.Mutex
}

// NewConn creates an unconnected Conn. tokens may be nil when the endpoint
// needs no credential; log may be nil.
func NewConn(opts common.Options, tokens TokenProvider, log abstractlogger.Logger) *Conn {
	if log == nil {
		log = abstractlogger.NoopLogger
	}
	return &Conn{
		opts:     opts.WithDefaults(),
		tokens:   tokens,
		log:      log,
		registry: NewRegistry(),
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// SubCount reports the number of active subscriptions.
func (c *Conn) SubCount() int {
	return c.registry.Len()
}

// Connect dials the endpoint, negotiates the subprotocol, and performs the
// connection_init/connection_ack handshake. It is idempotent while
// connected, and concurrent callers during the handshake are coalesced onto
// the in-flight attempt rather than opening duplicate sockets.
func (c *Conn) Connect(ctx context.Context) error {
	if c.State() == StateConnected {
		return nil
	}

	_, err, _ := c.connectGroup.Do("connect", func() (any, error) {
		return nil, c.connect(ctx)
	})
	return err
}

func (c *Conn) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.State() == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state.Store(int32(StateConnecting))
	c.mu.Unlock()

	var subprotocols []string
	switch c.opts.Subprotocol {
	case common.SubprotocolTransportWS:
		subprotocols = []string{string(common.SubprotocolTransportWS)}
	case common.SubprotocolLegacyWS:
		subprotocols = []string{string(common.SubprotocolLegacyWS)}
	default:
		subprotocols = []string{string(common.SubprotocolTransportWS), string(common.SubprotocolLegacyWS)}
	}

	ws, _, err := websocket.Dial(ctx, c.opts.Endpoint, &websocket.DialOptions{
		HTTPClient:   c.opts.HTTPClient,
		HTTPHeader:   c.opts.Headers,
		Subprotocols: subprotocols,
	})
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("dial %s: %w", c.opts.Endpoint, err)
	}

	proto, err := c.negotiate(ws.Subprotocol())
	if err != nil {
		ws.Close(websocket.StatusProtocolError, "subprotocol mismatch")
		c.state.Store(int32(StateDisconnected))
		return err
	}

	if err := proto.Init(ctx, ws, c.initPayload()); err != nil {
		ws.Close(websocket.StatusProtocolError, "handshake failed")
		c.state.Store(int32(StateDisconnected))
		return err
	}

	readCtx, readCancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.ws = ws
	c.proto = proto
	c.readCancel = readCancel
	c.keepAliveStop = make(chan struct{})
	keepAliveStop := c.keepAliveStop
	c.state.Store(int32(StateConnected))
	c.mu.Unlock()

	c.log.Debug("transport.Conn.Connect",
		abstractlogger.String("endpoint", c.opts.Endpoint),
		abstractlogger.String("subprotocol", proto.Subprotocol()),
	)

	go c.readLoop(readCtx, ws, proto)
	go c.keepAlive(keepAliveStop, ws, proto)

	return nil
}

func (c *Conn) negotiate(accepted string) (protocol.Protocol, error) {
	requested := c.opts.Subprotocol
	if requested != common.SubprotocolAuto && accepted != "" && accepted != string(requested) {
		return nil, fmt.Errorf("server accepted subprotocol %q, requested %q", accepted, requested)
	}

	switch common.Subprotocol(accepted) {
	case common.SubprotocolTransportWS:
		return &protocol.TransportWS{AckTimeout: c.opts.AckTimeout}, nil
	case common.SubprotocolLegacyWS:
		return &protocol.LegacyWS{AckTimeout: c.opts.AckTimeout}, nil
	case common.SubprotocolAuto:
		// Server echoed no subprotocol. Assume the requested one, or the
		// modern dialect when negotiating.
		if requested == common.SubprotocolLegacyWS {
			return &protocol.LegacyWS{AckTimeout: c.opts.AckTimeout}, nil
		}
		return &protocol.TransportWS{AckTimeout: c.opts.AckTimeout}, nil
	default:
		return nil, fmt.Errorf("unsupported subprotocol %q", accepted)
	}
}

func (c *Conn) initPayload() map[string]any {
	if c.tokens == nil {
		return nil
	}
	tok := c.tokens.Token()
	if tok == "" {
		return nil
	}
	return map[string]any{"Authorization": "Bearer " + tok}
}

// Subscribe registers a fresh correlation id and sends the start frame.
// It returns the handle immediately; data, errors, and completion arrive
// asynchronously on the handle's channel. Fails fast with ErrNotConnected
// while disconnected or connecting.
func (c *Conn) Subscribe(ctx context.Context, req *common.Request) (*Subscription, error) {
	c.mu.Lock()
	if c.State() != StateConnected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	ws, proto := c.ws, c.proto
	c.mu.Unlock()

	id := c.registry.NextID()
	sub := newSubscription(id, c)

	if err := c.registry.Register(id, sub); err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()

	if err := c.withWriteLock(func() error {
		return proto.Subscribe(writeCtx, ws, id, req)
	}); err != nil {
		c.registry.Remove(id)
		c.log.Error("transport.Conn.Subscribe",
			abstractlogger.String("id", id),
			abstractlogger.Error(err),
		)
		return nil, err
	}

	c.log.Debug("transport.Conn.Subscribe",
		abstractlogger.String("id", id),
		abstractlogger.String("status", "subscribed"),
	)

	return sub, nil
}

// cancel implements Subscription.Cancel. Deregistering first guarantees
// that frames racing the cancel are dropped, never delivered to a sink the
// caller already gave up on.
func (c *Conn) cancel(id string) {
	sub, ok := c.registry.Remove(id)
	if !ok {
		return
	}

	c.mu.Lock()
	ws, proto := c.ws, c.proto
	c.mu.Unlock()

	if ws != nil {
		writeCtx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
		if err := c.withWriteLock(func() error {
			return proto.Unsubscribe(writeCtx, ws, id)
		}); err != nil {
			c.log.Debug("transport.Conn.cancel",
				abstractlogger.String("id", id),
				abstractlogger.Error(err),
			)
		}
		cancel()
	}

	sub.finish(nil)
}

// withWriteLock serializes outbound writes; concurrent writers are not
// allowed on a WebSocket connection.
func (c *Conn) withWriteLock(f func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.State() != StateConnected {
		return ErrConnectionClosed
	}
	return f()
}

// readLoop is the single reader for the connected cycle. It exits on socket
// failure or local disconnect. Decode failures are per-frame events: logged
// and skipped, never fatal.
func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn, proto protocol.Protocol) {
	for {
		msg, err := proto.Read(ctx, ws)
		if err != nil {
			var de *protocol.DecodeError
			if errors.As(err, &de) {
				c.log.Debug("transport.Conn.readLoop",
					abstractlogger.String("status", "frame dropped"),
					abstractlogger.Error(de),
				)
				continue
			}
			if ctx.Err() == nil {
				c.log.Debug("transport.Conn.readLoop",
					abstractlogger.String("status", "read failed"),
					abstractlogger.Error(err),
				)
				c.shutdown(ws, fmt.Errorf("%w: %v", ErrConnectionClosed, err))
			}
			return
		}

		switch msg.Type {
		case protocol.MessagePing:
			pongCtx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
			_ = c.withWriteLock(func() error {
				return proto.Pong(pongCtx, ws)
			})
			cancel()

		case protocol.MessagePong:
			// pongs double as unidirectional heartbeats

		case protocol.MessageData:
			sub, ok := c.registry.Lookup(msg.ID)
			if !ok {
				// stray frame after local unsubscribe, drop it
				continue
			}
			sub.deliver(msg.IntoClientMessage())

		case protocol.MessageError, protocol.MessageComplete:
			sub, ok := c.registry.Remove(msg.ID)
			if !ok {
				if msg.Err != nil {
					c.log.Debug("transport.Conn.readLoop",
						abstractlogger.String("status", "stray error frame"),
						abstractlogger.String("id", msg.ID),
						abstractlogger.Error(msg.Err),
					)
				}
				continue
			}
			sub.finish(msg.IntoClientMessage())
		}
	}
}

// keepAlive sends protocol pings at the configured cadence until the cycle
// ends. A no-op for dialects without client-initiated keep-alive.
func (c *Conn) keepAlive(stop <-chan struct{}, ws *websocket.Conn, proto protocol.Protocol) {
	if c.opts.KeepAliveInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.opts.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
			if err := c.withWriteLock(func() error {
				return proto.Ping(pingCtx, ws)
			}); err != nil {
				c.log.Debug("transport.Conn.keepAlive", abstractlogger.Error(err))
			}
			cancel()
		}
	}
}

// Disconnect force-completes every active subscription (cleanly, without an
// error), best-effort sends the dialect's terminate frame, and closes the
// socket. A no-op when not connected; safe to call concurrently with the
// read loop and with in-flight Subscribe/Cancel calls.
func (c *Conn) Disconnect() error {
	if c.State() != StateConnected {
		return nil
	}

	c.mu.Lock()
	ws, proto := c.ws, c.proto
	c.mu.Unlock()

	if ws != nil {
		writeCtx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
		_ = c.withWriteLock(func() error {
			return proto.Terminate(writeCtx, ws)
		})
		cancel()
	}

	c.shutdown(ws, nil)
	return nil
}

// shutdown ends the cycle owning ws exactly once. A nil reason means a local
// disconnect: subscriptions complete cleanly. A non-nil reason is delivered
// to every subscription before its channel closes. A read loop that outlived
// its cycle may report a failure after a disconnect and reconnect; the socket
// check makes that a no-op instead of a teardown of the current cycle.
func (c *Conn) shutdown(ws *websocket.Conn, reason error) {
	c.mu.Lock()
	if ws == nil || ws != c.ws {
		c.mu.Unlock()
		return
	}
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		c.mu.Unlock()
		return
	}
	readCancel := c.readCancel
	keepAliveStop := c.keepAliveStop
	c.ws = nil
	c.proto = nil
	c.readCancel = nil
	c.keepAliveStop = nil
	c.mu.Unlock()

	c.log.Debug("transport.Conn.shutdown", abstractlogger.Error(reason))

	if readCancel != nil {
		readCancel()
	}
	if keepAliveStop != nil {
		close(keepAliveStop)
	}
	if ws != nil {
		ws.Close(websocket.StatusNormalClosure, "shutdown")
	}

	final := &common.Message{Done: true}
	if reason != nil {
		final = &common.Message{Err: reason, Done: true}
	}

	for _, sub := range c.registry.DrainAll() {
		sub.finish(final)
	}
}
