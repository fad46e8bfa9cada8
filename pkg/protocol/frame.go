package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Kind identifies a wire frame type independent of the dialect's type-name
// spelling.
type Kind int

const (
	KindConnectionInit Kind = iota
	KindConnectionAck
	KindConnectionError
	KindConnectionTerminate
	KindSubscribe
	KindNext
	KindError
	KindComplete
	KindStop
	KindPing
	KindPong
	KindKeepAlive
)

func (k Kind) String() string {
	switch k {
	case KindConnectionInit:
		return "connection_init"
	case KindConnectionAck:
		return "connection_ack"
	case KindConnectionError:
		return "connection_error"
	case KindConnectionTerminate:
		return "connection_terminate"
	case KindSubscribe:
		return "subscribe"
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	case KindStop:
		return "stop"
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	case KindKeepAlive:
		return "ka"
	default:
		return "unknown"
	}
}

// Frame is the wire envelope {id?, type, payload?}. The correlation ID is
// required for subscribe/next/error/complete/stop and absent for connection
// lifecycle and keep-alive frames.
type Frame struct {
	ID      string
	Kind    Kind
	Payload json.RawMessage
}

// Dialect selects the type-name table used on the wire.
type Dialect int

const (
	// DialectTransportWS is the graphql-transport-ws dialect:
	// subscribe/next/complete with bidirectional ping/pong. The client
	// signals stop by sending a complete frame.
	DialectTransportWS Dialect = iota

	// DialectLegacyWS is the graphql-ws dialect: start/data/stop with a
	// server-sent ka keep-alive and an explicit connection_terminate.
	DialectLegacyWS
)

func (d Dialect) String() string {
	if d == DialectLegacyWS {
		return "graphql-ws"
	}
	return "graphql-transport-ws"
}

var transportWSNames = map[Kind]string{
	KindConnectionInit:  "connection_init",
	KindConnectionAck:   "connection_ack",
	KindConnectionError: "connection_error",
	KindSubscribe:       "subscribe",
	KindNext:            "next",
	KindError:           "error",
	KindComplete:        "complete",
	KindStop:            "complete",
	KindPing:            "ping",
	KindPong:            "pong",
}

var legacyWSNames = map[Kind]string{
	KindConnectionInit:      "connection_init",
	KindConnectionAck:       "connection_ack",
	KindConnectionError:     "connection_error",
	KindConnectionTerminate: "connection_terminate",
	KindSubscribe:           "start",
	KindNext:                "data",
	KindError:               "error",
	KindComplete:            "complete",
	KindStop:                "stop",
	KindKeepAlive:           "ka",
}

var (
	transportWSKinds = invert(transportWSNames)
	legacyWSKinds    = invert(legacyWSNames)
)

// invert builds the decode table. KindStop shares the wire name "complete"
// in the modern dialect; inbound frames always decode to KindComplete there.
func invert(names map[Kind]string) map[string]Kind {
	kinds := make(map[string]Kind, len(names))
	for k, name := range names {
		if k == KindStop && name == "complete" {
			continue
		}
		kinds[name] = k
	}
	return kinds
}

// DecodeError reports a frame that could not be decoded. It is a per-frame
// condition: callers log and skip the frame, the connection stays up.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode frame: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes f for the given dialect.
func Encode(d Dialect, f Frame) ([]byte, error) {
	names := transportWSNames
	if d == DialectLegacyWS {
		names = legacyWSNames
	}
	name, ok := names[f.Kind]
	if !ok {
		return nil, fmt.Errorf("frame kind %s not valid in dialect %s", f.Kind, d)
	}
	return json.Marshal(envelope{ID: f.ID, Type: name, Payload: f.Payload})
}

// Decode parses a wire frame. Malformed JSON and unrecognized type names
// yield a *DecodeError.
func Decode(d Dialect, data []byte) (Frame, error) {
	name, err := jsonparser.GetString(data, "type")
	if err != nil {
		return Frame{}, &DecodeError{Reason: "missing or malformed type", Err: err}
	}

	kinds := transportWSKinds
	if d == DialectLegacyWS {
		kinds = legacyWSKinds
	}
	kind, ok := kinds[name]
	if !ok {
		return Frame{}, &DecodeError{Reason: fmt.Sprintf("unrecognized type %q in dialect %s", name, d)}
	}

	frame := Frame{Kind: kind}

	if id, err := jsonparser.GetString(data, "id"); err == nil {
		frame.ID = id
	}
	if payload, dataType, _, err := jsonparser.Get(data, "payload"); err == nil && dataType != jsonparser.Null {
		frame.Payload = append(json.RawMessage(nil), payload...)
	}

	return frame, nil
}
