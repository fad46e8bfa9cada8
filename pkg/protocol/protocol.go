package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
)

var (
	ErrAckTimeout         = errors.New("connection_ack timeout")
	ErrAckNotReceived     = errors.New("expected connection_ack")
	ErrConnectionRejected = errors.New("connection rejected by server")
)

// Protocol abstracts one GraphQL-over-WebSocket dialect. Implementations are
// stateless; all connection state lives in the transport layer.
type Protocol interface {
	// Subprotocol returns the Sec-WebSocket-Protocol name of the dialect.
	Subprotocol() string

	// Init performs the connection_init/connection_ack handshake. The
	// payload carries the bearer credential. The ack wait is bounded by
	// the implementation's AckTimeout.
	Init(ctx context.Context, conn *websocket.Conn, payload map[string]any) error

	// Subscribe sends the start frame for the given correlation id.
	Subscribe(ctx context.Context, conn *websocket.Conn, id string, req *common.Request) error

	// Unsubscribe sends the dialect's stop frame for the given id.
	Unsubscribe(ctx context.Context, conn *websocket.Conn, id string) error

	// Terminate sends the dialect's connection teardown frame, if any.
	Terminate(ctx context.Context, conn *websocket.Conn) error

	Ping(ctx context.Context, conn *websocket.Conn) error
	Pong(ctx context.Context, conn *websocket.Conn) error

	// Read blocks for the next inbound frame and decodes it. Socket
	// failures surface as-is; per-frame decode failures surface as a
	// *DecodeError so the caller can skip the frame.
	Read(ctx context.Context, conn *websocket.Conn) (*Message, error)
}

// Message is a decoded inbound frame, normalized across dialects.
type Message struct {
	ID      string
	Type    MessageType
	Payload *common.ExecutionResult
	Err     error
}

// IntoClientMessage converts a subscription-addressed message into the event
// delivered on the subscription channel.
func (m *Message) IntoClientMessage() *common.Message {
	switch m.Type {
	case MessageData:
		return &common.Message{Payload: m.Payload}
	case MessageError:
		return &common.Message{Err: m.Err, Done: true}
	case MessageComplete:
		return &common.Message{Done: true}
	default:
		return &common.Message{}
	}
}

// MessageType identifies the normalized message type.
type MessageType int

const (
	MessageData MessageType = iota
	MessageError
	MessageComplete
	MessagePing
	MessagePong
)

func (t MessageType) String() string {
	switch t {
	case MessageData:
		return "data"
	case MessageError:
		return "error"
	case MessageComplete:
		return "complete"
	case MessagePing:
		return "ping"
	case MessagePong:
		return "pong"
	default:
		return "unknown"
	}
}

// writeFrame encodes and writes one frame as a text message.
func writeFrame(ctx context.Context, conn *websocket.Conn, d Dialect, f Frame) error {
	data, err := Encode(d, f)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// readFrame reads and decodes one inbound frame.
func readFrame(ctx context.Context, conn *websocket.Conn, d Dialect) (Frame, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	return Decode(d, data)
}

// normalize maps a decoded frame onto the dialect-independent Message.
// Frames that are not expected after the handshake yield a *DecodeError so
// the read loop can drop them without tearing the connection down.
func normalize(f Frame) (*Message, error) {
	msg := &Message{ID: f.ID}

	switch f.Kind {
	case KindNext:
		msg.Type = MessageData
		if f.Payload != nil {
			var result common.ExecutionResult
			if err := json.Unmarshal(f.Payload, &result); err != nil {
				return nil, &DecodeError{Reason: "malformed data payload", Err: err}
			}
			msg.Payload = &result
		}

	case KindError:
		msg.Type = MessageError
		msg.Err = decodeErrorPayload(f.Payload)

	case KindComplete:
		msg.Type = MessageComplete

	case KindPing, KindKeepAlive:
		msg.Type = MessagePing

	case KindPong:
		msg.Type = MessagePong

	case KindConnectionError:
		// Stray connection_error after an established handshake. Carries
		// no correlation id, the dispatch layer drops it after logging.
		msg.Type = MessageError
		msg.Err = fmt.Errorf("%w: %s", ErrConnectionRejected, string(f.Payload))

	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unexpected %s frame", f.Kind)}
	}

	return msg, nil
}

// decodeErrorPayload accepts the error-list shape of the protocol as well as
// the single-object shape some servers send.
func decodeErrorPayload(payload json.RawMessage) error {
	if payload == nil {
		return errors.New("subscription error")
	}

	var errs []common.GraphQLError
	if err := json.Unmarshal(payload, &errs); err == nil && len(errs) > 0 {
		return &common.SubscriptionError{Errors: errs}
	}

	var single common.GraphQLError
	if err := json.Unmarshal(payload, &single); err == nil && single.Message != "" {
		return &common.SubscriptionError{Errors: []common.GraphQLError{single}}
	}

	return fmt.Errorf("subscription error: %s", string(payload))
}
