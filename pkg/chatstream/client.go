package chatstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ihebkh25/TTS-Project/pkg/configutil"
	"github.com/ihebkh25/TTS-Project/pkg/logging"
	"github.com/ihebkh25/TTS-Project/pkg/metrics"
	"github.com/ihebkh25/TTS-Project/pkg/protocol"
	"github.com/ihebkh25/TTS-Project/pkg/redact"
	"github.com/ihebkh25/TTS-Project/pkg/session"
	"github.com/ihebkh25/TTS-Project/pkg/transports"
	wstransport "github.com/ihebkh25/TTS-Project/pkg/transports/websocket"
)

// Client starts streaming chat sessions against one backend. Sessions are
// fully independent; a client may run any number of them concurrently.
type Client struct {
	cfg          Config
	log          *slog.Logger
	obs          metrics.Observer
	sampled      metrics.Observer
	newTransport func() (transports.Transport, error)
}

type Option func(*Client)

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithObserver(obs metrics.Observer) Option {
	return func(c *Client) { c.obs = obs }
}

// WithTransportFactory overrides how per-session transports are built,
// mainly for tests.
func WithTransportFactory(fn func() (transports.Transport, error)) Option {
	return func(c *Client) { c.newTransport = fn }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	c := &Client{cfg: cfg, obs: metrics.NoopObserver{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = logging.NewComponentLogger(c.log, "chatstream")
	redact.SetEnabled(cfg.Privacy.RedactPII)

	if c.newTransport == nil {
		factory, err := transportFactory(cfg.Transport)
		if err != nil {
			return nil, err
		}
		c.newTransport = factory
	}

	rate := cfg.Observability.TokenSampleRate
	if rate > 0 && rate < 1 {
		c.sampled = metrics.NewSamplingObserver(c.obs, rate)
	} else {
		c.sampled = c.obs
	}
	return c, nil
}

type websocketSettings struct {
	Endpoint      string `mapstructure:"endpoint"`
	DialTimeoutMS int    `mapstructure:"dial_timeout_ms"`
}

func transportFactory(tc TransportConfig) (func() (transports.Transport, error), error) {
	switch tc.Provider {
	case "", "websocket":
		if err := configutil.ValidateSettings(tc.Settings, configutil.Schema{
			Required: []string{"endpoint"},
			Optional: []string{"dial_timeout_ms"},
		}); err != nil {
			return nil, fmt.Errorf("transport settings: %w", err)
		}
		var settings websocketSettings
		if err := configutil.DecodeSettings(tc.Settings, &settings); err != nil {
			return nil, fmt.Errorf("transport settings: %w", err)
		}
		return func() (transports.Transport, error) {
			return wstransport.New(wstransport.Config{
				Endpoint:    settings.Endpoint,
				DialTimeout: time.Duration(settings.DialTimeoutMS) * time.Millisecond,
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown transport provider %q", tc.Provider)
	}
}

// StartSession validates the request, opens a connection, and returns a
// stream handle delivering lifecycle events until a terminal state. The
// handle is not restartable; cancel ctx or call Close to abandon it.
func (c *Client) StartSession(ctx context.Context, req protocol.Request) (*Stream, error) {
	if req.Language == "" {
		req.Language = c.cfg.Language
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tr, err := c.newTransport()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := session.New(uuid.NewString(), req, now)
	st := &Stream{
		tr:      tr,
		log:     c.log.With(slog.String("session_id", sess.ID)),
		obs:     c.obs,
		sampled: c.sampled,
		events:  make(chan session.Event, c.cfg.EventBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		sess:    sess,
	}

	st.log.Info("starting chat session",
		slog.String("language", req.Language),
		slog.String("conversation_id", req.ConversationID),
		slog.String("message", redact.Text(req.Message)))

	if err := tr.Connect(ctx, req); err != nil {
		sess, ev := sess.Closed(err, time.Now())
		st.sess = sess
		st.record(ev, len(sess.Text))
		st.log.Error("chat session dial failed", slog.String("error", err.Error()))
		return nil, err
	}

	sess, ev := sess.Connected(time.Now())
	st.sess = sess
	st.record(ev, len(sess.Text))
	st.deliver(ev)

	go st.loop(ctx)
	return st, nil
}
