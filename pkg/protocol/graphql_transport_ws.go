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

// TransportWS implements the graphql-transport-ws dialect. The client stops
// a subscription by sending a complete frame; ping/pong flow in both
// directions; there is no connection_terminate.
type TransportWS struct {
	AckTimeout time.Duration
}

func NewTransportWS() *TransportWS {
	return &TransportWS{
		AckTimeout: common.DefaultAckTimeout,
	}
}

// Subprotocol implements Protocol.
func (p *TransportWS) Subprotocol() string {
	return string(common.SubprotocolTransportWS)
}

// Init implements Protocol.
func (p *TransportWS) Init(ctx context.Context, conn *websocket.Conn, payload map[string]any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal init payload: %w", err)
		}
		raw = data
	}
	if err := writeFrame(ctx, conn, DialectTransportWS, Frame{Kind: KindConnectionInit, Payload: raw}); err != nil {
		return fmt.Errorf("write connection_init: %w", err)
	}

	timeout := p.AckTimeout
	if timeout == 0 {
		timeout = common.DefaultAckTimeout
	}

	ackCtx, ackCancel := context.WithTimeout(ctx, timeout)
	defer ackCancel()

	for {
		frame, err := readFrame(ackCtx, conn, DialectTransportWS)
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
		case KindPing:
			if err := p.Pong(ctx, conn); err != nil {
				return fmt.Errorf("pre-ack pong: %w", err)
			}
		case KindConnectionError:
			return fmt.Errorf("%w: %s", ErrConnectionRejected, string(frame.Payload))
		default:
			return fmt.Errorf("%w: got %s", ErrAckNotReceived, frame.Kind)
		}
	}
}

// Subscribe implements Protocol.
func (p *TransportWS) Subscribe(ctx context.Context, conn *websocket.Conn, id string, req *common.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscribe payload: %w", err)
	}
	return writeFrame(ctx, conn, DialectTransportWS, Frame{ID: id, Kind: KindSubscribe, Payload: payload})
}

// Unsubscribe implements Protocol.
func (p *TransportWS) Unsubscribe(ctx context.Context, conn *websocket.Conn, id string) error {
	return writeFrame(ctx, conn, DialectTransportWS, Frame{ID: id, Kind: KindStop})
}

// Terminate implements Protocol. The modern dialect has no terminate frame,
// closing the socket is the teardown signal.
func (p *TransportWS) Terminate(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

// Ping implements Protocol.
func (p *TransportWS) Ping(ctx context.Context, conn *websocket.Conn) error {
	return writeFrame(ctx, conn, DialectTransportWS, Frame{Kind: KindPing})
}

// Pong implements Protocol.
func (p *TransportWS) Pong(ctx context.Context, conn *websocket.Conn) error {
	return writeFrame(ctx, conn, DialectTransportWS, Frame{Kind: KindPong})
}

// Read implements Protocol.
func (p *TransportWS) Read(ctx context.Context, conn *websocket.Conn) (*Message, error) {
	frame, err := readFrame(ctx, conn, DialectTransportWS)
	if err != nil {
		return nil, err
	}
	return normalize(frame)
}

var _ Protocol = (*TransportWS)(nil)
