package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danmuck/connstate/internal/auth"
	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/mediasession"
	"github.com/danmuck/connstate/internal/protocol/frame"
	"github.com/danmuck/connstate/internal/protocol/wire"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// ErrUnavailable reports that no websocket could be opened to the session.
// Only these failures are retried by a Dialer.
var ErrUnavailable = errors.New("transport: session unavailable")

// WebSocketHandler serves one handshake per websocket: it reads a connection
// request frame, asks the session to accept it and answers with a state frame
// or a rejection frame.
type WebSocketHandler struct {
	Session  Acceptor
	Options  wire.Options
	Upgrader websocket.Upgrader
	// Auth checks the request frame's auth bytes before the payload is
	// decoded. Nil accepts every request.
	Auth auth.Validator
	// ReadTimeout bounds the wait for the request frame after the upgrade.
	ReadTimeout time.Duration
	Logger      zerolog.Logger
}

func NewWebSocketHandler(session Acceptor, opts wire.Options, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		Session: session,
		Options: opts,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		ReadTimeout: handshakeTimeout,
		Logger:      logger,
	}
}

// AllowOrigins returns an Upgrader.CheckOrigin that accepts requests without
// an Origin header, same-origin requests and the listed origins.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit(h.Options.Limits))
	timeout := h.ReadTimeout
	if timeout <= 0 {
		timeout = handshakeTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket read request failed")
		return
	}
	if msgType != websocket.BinaryMessage {
		h.reject(conn, 0, "binary frame required")
		return
	}
	opts := h.Options
	opts.Verify = h.Auth
	msg, req, err := wire.ReadRequest(bytes.NewReader(data), opts)
	if err != nil {
		h.reject(conn, msg.ID, err.Error())
		return
	}
	d, err := h.Session.Accept(req, false)
	if err != nil {
		h.reject(conn, msg.ID, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := wire.WriteDelivery(&buf, msg.ID, d, h.Options); err != nil {
		h.Logger.Error().Err(err).Msg("encode connection state failed")
		h.reject(conn, msg.ID, "internal error")
		return
	}
	if err := h.send(conn, buf.Bytes()); err != nil {
		h.Logger.Warn().Err(err).Msg("websocket write state failed")
		return
	}
	h.Logger.Debug().
		Uint64("message_id", msg.ID).
		Str("package", req.PackageName).
		Int("bytes", buf.Len()).
		Msg("connection state sent")
	h.close(conn)
}

func (h *WebSocketHandler) reject(conn *websocket.Conn, id uint64, reason string) {
	h.Logger.Info().Uint64("message_id", id).Str("reason", reason).Msg("connection rejected")
	var buf bytes.Buffer
	if err := wire.WriteRejected(&buf, id, reason, h.Options); err != nil {
		return
	}
	if err := h.send(conn, buf.Bytes()); err != nil {
		return
	}
	h.close(conn)
}

func (h *WebSocketHandler) send(conn *websocket.Conn, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (h *WebSocketHandler) close(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// Dialer is the controller side of a websocket handshake.
type Dialer struct {
	Options wire.Options
	TLS     *tls.Config
	Backoff Backoff
	// Attempts bounds dials while the session is unavailable. Values below
	// one mean a single attempt.
	Attempts int
}

// Dial performs one handshake against url with default dialer settings.
func Dial(ctx context.Context, url string, req connstate.ConnectionRequest, opts wire.Options) (*connstate.ConnectionState, error) {
	return Dialer{Options: opts}.Dial(ctx, url, req)
}

// Dial sends req to url and returns the decoded state. Rejections and decode
// failures are returned at once; ErrUnavailable is retried with backoff.
func (d Dialer) Dial(ctx context.Context, url string, req connstate.ConnectionRequest) (*connstate.ConnectionState, error) {
	attempts := max(d.Attempts, 1)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		state, err := d.dialOnce(ctx, url, req)
		if err == nil || !errors.Is(err, ErrUnavailable) || attempt >= attempts {
			return state, err
		}
		timer := time.NewTimer(d.Backoff.Delay(attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (d Dialer) dialOnce(ctx context.Context, url string, req connstate.ConnectionRequest) (*connstate.ConnectionState, error) {
	wsDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig:  d.TLS,
	}
	conn, _, err := wsDialer.DialContext(ctx, url, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, url, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}
	conn.SetReadLimit(readLimit(d.Options.Limits))

	var buf bytes.Buffer
	if err := wire.WriteRequest(&buf, 1, req, d.Options); err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("transport: send request: %w", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("transport: read state: %w", err)
	}
	m, err := wire.ReadBundle(bytes.NewReader(data), d.Options)
	if err != nil {
		return nil, err
	}
	switch m.Type {
	case wire.MsgConnectionState:
		return mediasession.Connect(connstate.RemoteDelivery(m.Body))
	case wire.MsgConnectionRejected:
		return nil, fmt.Errorf("%w: %s", ErrRejected, wire.RejectReason(m))
	default:
		return nil, fmt.Errorf("%w: %s", wire.ErrUnexpectedMessage, m.Type)
	}
}

// IsRejected reports whether err is a session refusal rather than a
// transport failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, mediasession.ErrRejected) ||
		errors.Is(err, mediasession.ErrInvalidRequest)
}

func readLimit(l frame.Limits) int64 {
	return int64(frame.FixedHeaderLen) + int64(l.MaxAuthBytes) + int64(l.MaxPayloadBytes)
}
