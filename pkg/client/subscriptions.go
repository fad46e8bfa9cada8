package client

import (
	"context"
	"fmt"

	"github.com/jensneuse/abstractlogger"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/transport"
)

// ensureWS returns the shared websocket connection, dialing it on first
// use. The HTTP client doubles as the token provider so the handshake
// always carries the current credential.
func (c *Client) ensureWS(ctx context.Context) (*transport.Conn, error) {
	if c.cfg.WSEndpoint == "" {
		return nil, fmt.Errorf("subscribe: no websocket endpoint configured")
	}

	c.mu.Lock()
	if c.ws == nil {
		c.ws = transport.NewConn(common.Options{
			Endpoint:          c.cfg.WSEndpoint,
			Subprotocol:       c.cfg.Subprotocol,
			AckTimeout:        c.cfg.AckTimeout,
			KeepAliveInterval: c.cfg.KeepAliveInterval,
		}, c.http, c.log)
	}
	ws := c.ws
	c.mu.Unlock()

	if err := ws.Connect(ctx); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return ws, nil
}

func (c *Client) disconnectWS() {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	if ws != nil {
		ws.Disconnect()
	}
}

// DisconnectSubscriptions tears down the websocket. Live subscriptions
// receive a final completion message; later subscribe calls reconnect.
func (c *Client) DisconnectSubscriptions() {
	c.disconnectWS()
}

// SubscribeTagValues streams value changes for the named tags. The channel
// closes after the stream completes or the connection drops; the returned
// subscription cancels the stream.
func (c *Client) SubscribeTagValues(ctx context.Context, names []string) (<-chan *TagValueNotification, *transport.Subscription, error) {
	ws, err := c.ensureWS(ctx)
	if err != nil {
		return nil, nil, err
	}

	sub, err := ws.Subscribe(ctx, &common.Request{
		Query:     tagValuesSubscription,
		Variables: map[string]any{"names": names},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe tag values: %w", err)
	}

	out := make(chan *TagValueNotification)
	go func() {
		defer close(out)
		for msg := range sub.Messages() {
			if msg.Err != nil {
				c.log.Error("client.SubscribeTagValues",
					abstractlogger.String("id", sub.ID()),
					abstractlogger.Error(msg.Err),
				)
			}
			if msg.Payload == nil {
				continue
			}
			var event struct {
				TagValues *TagValueNotification `json:"tagValues"`
			}
			if err := decodeData(msg.Payload.Data, &event); err != nil {
				c.log.Error("client.SubscribeTagValues",
					abstractlogger.String("id", sub.ID()),
					abstractlogger.Error(err),
				)
				continue
			}
			if event.TagValues != nil {
				select {
				case out <- event.TagValues:
				case <-ctx.Done():
					sub.Cancel()
					return
				}
			}
		}
	}()

	return out, sub, nil
}

// SubscribeActiveAlarms streams alarm state changes.
func (c *Client) SubscribeActiveAlarms(ctx context.Context) (<-chan *AlarmNotification, *transport.Subscription, error) {
	ws, err := c.ensureWS(ctx)
	if err != nil {
		return nil, nil, err
	}

	sub, err := ws.Subscribe(ctx, &common.Request{
		Query: activeAlarmsSubscription,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe active alarms: %w", err)
	}

	out := make(chan *AlarmNotification)
	go func() {
		defer close(out)
		for msg := range sub.Messages() {
			if msg.Err != nil {
				c.log.Error("client.SubscribeActiveAlarms",
					abstractlogger.String("id", sub.ID()),
					abstractlogger.Error(msg.Err),
				)
			}
			if msg.Payload == nil {
				continue
			}
			var event struct {
				ActiveAlarms *AlarmNotification `json:"activeAlarms"`
			}
			if err := decodeData(msg.Payload.Data, &event); err != nil {
				c.log.Error("client.SubscribeActiveAlarms",
					abstractlogger.String("id", sub.ID()),
					abstractlogger.Error(err),
				)
				continue
			}
			if event.ActiveAlarms != nil {
				select {
				case out <- event.ActiveAlarms:
				case <-ctx.Done():
					sub.Cancel()
					return
				}
			}
		}
	}()

	return out, sub, nil
}

// SubscribeRedundancyState streams redundancy failover state changes.
func (c *Client) SubscribeRedundancyState(ctx context.Context) (<-chan *ReduStateNotification, *transport.Subscription, error) {
	ws, err := c.ensureWS(ctx)
	if err != nil {
		return nil, nil, err
	}

	sub, err := ws.Subscribe(ctx, &common.Request{
		Query: reduStateSubscription,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe redundancy state: %w", err)
	}

	out := make(chan *ReduStateNotification)
	go func() {
		defer close(out)
		for msg := range sub.Messages() {
			if msg.Err != nil {
				c.log.Error("client.SubscribeRedundancyState",
					abstractlogger.String("id", sub.ID()),
					abstractlogger.Error(msg.Err),
				)
			}
			if msg.Payload == nil {
				continue
			}
			var event struct {
				ReduState *ReduStateNotification `json:"reduState"`
			}
			if err := decodeData(msg.Payload.Data, &event); err != nil {
				c.log.Error("client.SubscribeRedundancyState",
					abstractlogger.String("id", sub.ID()),
					abstractlogger.Error(err),
				)
				continue
			}
			if event.ReduState != nil {
				select {
				case out <- event.ReduState:
				case <-ctx.Done():
					sub.Cancel()
					return
				}
			}
		}
	}()

	return out, sub, nil
}
