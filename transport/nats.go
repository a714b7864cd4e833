package transport

import (
	"context"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/teranos/ldx/errors"
)

// Role decides which subject a NATS transport publishes to.
type Role int

const (
	// RoleClient publishes commands and receives responses.
	RoleClient Role = iota
	// RoleHost receives commands and publishes responses.
	RoleHost
)

// Subjects returns the command and response subjects for prefix.
func Subjects(prefix string) (commands, responses string) {
	prefix = strings.TrimSuffix(prefix, ".")
	return prefix + ".commands", prefix + ".responses"
}

// NATS exchanges frames over a pair of core NATS subjects. Every host
// response is seen by every client subscribed to the prefix; clients
// correlate by the echoed command.
type NATS struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	publish  string
	ownsConn bool
}

// NewNATS subscribes on conn for role. The caller keeps ownership of conn.
func NewNATS(conn *nats.Conn, prefix string, role Role) (*NATS, error) {
	commands, responses := Subjects(prefix)
	listen, publish := responses, commands
	if role == RoleHost {
		listen, publish = commands, responses
	}

	sub, err := conn.SubscribeSync(listen)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe to %s", listen)
	}
	// Make sure the server has the interest before any peer publishes.
	if err := conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, errors.Wrap(err, "flush subscription")
	}
	return &NATS{conn: conn, sub: sub, publish: publish}, nil
}

// DialNATS connects to url and returns a transport that owns the connection.
func DialNATS(url, prefix string, role Role) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("ldx"))
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "connect to NATS at %s", url),
			"set nats.url in am.toml or LDX_NATS_URL",
		)
	}
	t, err := NewNATS(conn, prefix, role)
	if err != nil {
		conn.Close()
		return nil, err
	}
	t.ownsConn = true
	return t, nil
}

func (n *NATS) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.conn.IsClosed() {
		return closed("nats connection closed")
	}
	if err := n.conn.Publish(n.publish, frame); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return closed(err.Error())
		}
		return errors.Wrapf(err, "publish to %s", n.publish)
	}
	return nil
}

func (n *NATS) Receive(ctx context.Context) ([]byte, error) {
	msg, err := n.sub.NextMsgWithContext(ctx)
	if err != nil {
		if errors.IsAny(err, nats.ErrConnectionClosed, nats.ErrBadSubscription) {
			return nil, closed(err.Error())
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "receive from nats")
	}
	return msg.Data, nil
}

func (n *NATS) Close() error {
	err := n.sub.Unsubscribe()
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		err = nil
	}
	if n.ownsConn {
		n.conn.Close()
	}
	return err
}
