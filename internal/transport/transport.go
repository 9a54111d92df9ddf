// Package transport carries a connection handshake between a controller and a
// session: in-process through Local, across processes over a websocket.
package transport

import (
	"context"
	"errors"

	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/mediasession"
)

// ErrRejected reports that the session refused the connection request. The
// session's reason follows in the error text.
var ErrRejected = errors.New("transport: connection rejected")

// Acceptor is the session side of a handshake.
type Acceptor interface {
	Accept(req connstate.ConnectionRequest, sameProcess bool) (connstate.Delivery, error)
}

// Local connects controllers living in the session's process. No encoding
// takes place; the controller receives the session's own instance.
type Local struct {
	session Acceptor
}

func NewLocal(session Acceptor) *Local {
	return &Local{session: session}
}

func (l *Local) Connect(ctx context.Context, req connstate.ConnectionRequest) (*connstate.ConnectionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := l.session.Accept(req, true)
	if err != nil {
		return nil, err
	}
	return mediasession.Connect(d)
}
