package common

import (
	"encoding/json"
	"fmt"
)

// Message is one event delivered on a subscription's channel.
type Message struct {
	// Payload contains the GraphQL response payload of a data frame.
	Payload *ExecutionResult

	// Err is a transport or subscription level error. Always terminal.
	Err error

	// Done indicates the subscription has completed and no further
	// messages will follow.
	Done bool
}

// ExecutionResult is the GraphQL response shape carried by data frames and
// HTTP responses.
type ExecutionResult struct {
	Data       json.RawMessage `json:"data"`
	Errors     []GraphQLError  `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// GraphQLError represents a GraphQL execution error.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Request represents a GraphQL operation. The document string is opaque to
// the transport; callers supply it verbatim.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// SubscriptionError wraps the GraphQL error list of an error frame.
type SubscriptionError struct {
	Errors []GraphQLError
}

func (e *SubscriptionError) Error() string {
	if len(e.Errors) == 0 {
		return "subscription error"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Message
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Message, len(e.Errors)-1)
}
