package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
	"github.com/ihebkh25/TTS-Project/pkg/protocol"
	"github.com/ihebkh25/TTS-Project/pkg/transports"
)

type Config struct {
	// Endpoint is the base WebSocket URL, e.g. ws://localhost:8085.
	Endpoint    string
	DialTimeout time.Duration
}

// Transport streams chat frames over a gorilla WebSocket connection. The
// request travels as query parameters on the stream path; everything the
// backend sends back is forwarded raw and in order on Recv.
type Transport struct {
	cfg    Config
	conn   *websocket.Conn
	out    chan []byte
	local  atomic.Bool
	mu     sync.Mutex
	reason error
}

func New(cfg Config) *Transport {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Transport{
		cfg: cfg,
		out: make(chan []byte, 256),
	}
}

func (t *Transport) Name() string { return "websocket" }

func (t *Transport) Connect(ctx context.Context, req protocol.Request) error {
	if t.cfg.Endpoint == "" {
		return errorsx.New("websocket endpoint is empty", errorsx.ReasonTransportDial)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	u := req.StreamURL(t.cfg.Endpoint)

	slog.Debug("dialing chat stream",
		slog.String("endpoint", t.cfg.Endpoint),
		slog.String("language", req.Language))

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.cfg.DialTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			slog.Error("chat stream dial rejected",
				slog.String("status", resp.Status),
				slog.String("error", err.Error()))
		}
		return errorsx.Wrap(err, errorsx.ReasonTransportDial)
	}

	t.conn = conn
	slog.Info("chat stream connected",
		slog.String("endpoint", t.cfg.Endpoint))

	go t.readLoop()
	return nil
}

func (t *Transport) Recv() <-chan []byte { return t.out }

func (t *Transport) CloseErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

func (t *Transport) Close() error {
	if !t.local.CompareAndSwap(false, true) {
		return nil
	}
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

func (t *Transport) readLoop() {
	defer close(t.out)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if !t.cleanClose(err) {
				t.mu.Lock()
				t.reason = errorsx.Wrap(err, errorsx.ReasonTransportRead)
				t.mu.Unlock()
				slog.Warn("chat stream read failed",
					slog.String("error", err.Error()))
			}
			return
		}
		// Blocking send keeps delivery strictly ordered; backpressure is
		// the consumer's single-frame processing pace.
		t.out <- data
	}
}

func (t *Transport) cleanClose(err error) bool {
	if t.local.Load() {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

var _ transports.Transport = (*Transport)(nil)
