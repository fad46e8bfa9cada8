package transport

import (
	"sync"
	"time"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
)

// Subscription is the caller-facing handle for one logical stream
// multiplexed on the shared connection.
type Subscription struct {
	id   string
	msgs chan *common.Message
	conn *Conn

	// sendMu serializes deliver and finish so the channel is never closed
	// under an in-flight send. done unblocks a delivery stuck on a slow
	// consumer once the subscription ends.
	sendMu sync.Mutex
	done   chan struct{}
	closed bool
}

func newSubscription(id string, conn *Conn) *Subscription {
	return &Subscription{
		id: id,
		// Small buffer to absorb bursts
		msgs: make(chan *common.Message, 8),
		done: make(chan struct{}),
		conn: conn,
	}
}

// ID returns the correlation id of the subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Messages returns the event channel. Each data frame produces one message
// in wire order. The final message, if any, carries a terminal error or
// Done; the channel is closed afterwards and never reused.
func (s *Subscription) Messages() <-chan *common.Message {
	return s.msgs
}

// Cancel stops the subscription: a stop frame is sent best-effort, the id
// is deregistered, and the channel is closed. Safe to call multiple times
// and safe to race with inbound frames for the same id; frames arriving
// after Cancel returns are dropped.
func (s *Subscription) Cancel() {
	s.conn.cancel(s.id)
}

// deliver hands one message to the consumer, preserving wire order.
// Blocks on a slow consumer until the subscription ends.
func (s *Subscription) deliver(m *common.Message) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.msgs <- m:
	case <-s.done:
	}
}

// finish ends the subscription exactly once: callers must hold the
// registry removal for this id. A nil final closes the channel without a
// completion message (local cancellation).
func (s *Subscription) finish(final *common.Message) {
	close(s.done)

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if final != nil {
		select {
		case s.msgs <- final:
		case <-time.After(deliverTimeout):
			// dead consumer
		}
	}
	s.closed = true
	close(s.msgs)
}
