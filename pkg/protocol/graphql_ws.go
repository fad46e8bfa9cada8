package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
)

// LegacyWS implements the legacy graphql-ws dialect
// (subscriptions-transport-ws): start/data/stop frames, a server-sent ka
// keep-alive, and an explicit connection_terminate on teardown.
type LegacyWS struct {
	AckTimeout time.Duration
}

func NewLegacyWS() *LegacyWS {
	return &LegacyWS{
		AckTimeout: common.DefaultAckTimeout,
	}
}

// Subprotocol implements Protocol.
func (p *LegacyWS) Subprotocol() string {
	return string(common.SubprotocolLegacyWS)
}

// Init implements Protocol.
func (p *LegacyWS) Init(ctx context.Context, conn *websocket.Conn, payload map[string]any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal init payload: %w", err)
		}
		raw = data
	}
	if err := writeFrame(ctx, conn, DialectLegacyWS, Frame{Kind: KindConnectionInit, Payload: raw}); err != nil {
		return fmt.Errorf("write connection_init: %w", err)
	}

	timeout := p.AckTimeout
	if timeout == 0 {
		timeout = common.DefaultAckTimeout
	}

	ackCtx, ackCancel := context.WithTimeout(ctx, timeout)
	defer ackCancel()

	for {
		frame, err := readFrame(ackCtx, conn, DialectLegacyWS)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrAckTimeout
			}
			return fmt.Errorf("read connection_ack: %w", err)
		}

		switch frame.Kind {
		case KindConnectionAck:
			return nil
		case KindKeepAlive:
			// ka can arrive before the ack
		case KindConnectionError:
			return fmt.Errorf("%w: %s", ErrConnectionRejected, string(frame.Payload))
		default:
			return fmt.Errorf("%w: got %s", ErrAckNotReceived, frame.Kind)
		}
	}
}

// Subscribe implements Protocol.
func (p *LegacyWS) Subscribe(ctx context.Context, conn *websocket.Conn, id string, req *common.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal start payload: %w", err)
	}
	return writeFrame(ctx, conn, DialectLegacyWS, Frame{ID: id, Kind: KindSubscribe, Payload: payload})
}

// Unsubscribe implements Protocol.
func (p *LegacyWS) Unsubscribe(ctx context.Context, conn *websocket.Conn, id string) error {
	return writeFrame(ctx, conn, DialectLegacyWS, Frame{ID: id, Kind: KindStop})
}

// Terminate implements Protocol.
func (p *LegacyWS) Terminate(ctx context.Context, conn *websocket.Conn) error {
	return writeFrame(ctx, conn, DialectLegacyWS, Frame{Kind: KindConnectionTerminate})
}

// Ping implements Protocol. The legacy dialect has no client-initiated
// keep-alive, only the server-sent ka.
func (p *LegacyWS) Ping(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

// Pong implements Protocol. No pong in the legacy dialect.
func (p *LegacyWS) Pong(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

// Read implements Protocol.
func (p *LegacyWS) Read(ctx context.Context, conn *websocket.Conn) (*Message, error) {
	frame, err := readFrame(ctx, conn, DialectLegacyWS)
	if err != nil {
		return nil, err
	}
	return normalize(frame)
}

var _ Protocol = (*LegacyWS)(nil)
