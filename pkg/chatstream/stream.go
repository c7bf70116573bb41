package chatstream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
	"github.com/ihebkh25/TTS-Project/pkg/frames"
	"github.com/ihebkh25/TTS-Project/pkg/metrics"
	"github.com/ihebkh25/TTS-Project/pkg/protocol"
	"github.com/ihebkh25/TTS-Project/pkg/session"
	"github.com/ihebkh25/TTS-Project/pkg/transports"
)

// Stream is the handle for one running session. Events arrive in frame
// order and the sequence is finite: the last event carries a terminal
// state, after which the channel closes.
type Stream struct {
	tr      transports.Transport
	log     *slog.Logger
	obs     metrics.Observer
	sampled metrics.Observer

	events chan session.Event
	quit   chan struct{}
	done   chan struct{}

	abandonOnce sync.Once
	abandoned   atomic.Bool

	mu   sync.Mutex
	sess session.Session
}

// Events delivers lifecycle events, audio chunks included, as they happen.
// Audio payloads may come from a buffer pool; hand them to
// frames.ReleaseAudioFrame once consumed.
func (s *Stream) Events() <-chan session.Event { return s.events }

// Done closes when the consumption loop has fully finished.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Snapshot returns the current accumulated session state.
func (s *Stream) Snapshot() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Close abandons the session. Unless a terminal frame was already seen,
// the session ends Disconnected.
func (s *Stream) Close() error {
	s.abandon()
	return nil
}

func (s *Stream) abandon() {
	s.abandonOnce.Do(func() {
		s.abandoned.Store(true)
		close(s.quit)
		_ = s.tr.Close()
	})
}

// loop consumes inbound messages one at a time in arrival order. No
// parallelism: decoding and accumulation are cheap next to the network,
// and ordering is part of the protocol contract.
func (s *Stream) loop(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	watch := make(chan struct{})
	defer close(watch)
	go func() {
		select {
		case <-ctx.Done():
			s.abandon()
		case <-watch:
		}
	}()

	for raw := range s.tr.Recv() {
		f, err := protocol.Decode(raw)
		if err != nil {
			s.log.Warn("skipping malformed frame",
				slog.String("reason", string(errorsx.Reason(err))),
				slog.String("error", err.Error()))
			s.obs.RecordEvent(metrics.MetricsEvent{
				Name: "frame_decode_skipped",
				Time: time.Now(),
				Tags: map[string]string{"session_id": s.sess.ID},
			})
			continue
		}
		if uf, ok := f.(frames.UnknownFrame); ok {
			s.log.Warn("unknown frame type",
				slog.String("type", uf.WireType()))
		}

		s.mu.Lock()
		sess, ev := s.sess.Apply(f, time.Now())
		s.sess = sess
		textLen := len(sess.Text)
		s.mu.Unlock()

		s.record(ev, textLen)
		s.deliver(ev)

		if sess.State.Terminal() {
			_ = s.tr.Close()
			for range s.tr.Recv() {
			}
			break
		}
	}

	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if !sess.State.Terminal() {
		var ev session.Event
		if s.abandoned.Load() {
			sess, ev = sess.Abandoned(time.Now())
		} else {
			sess, ev = sess.Closed(s.tr.CloseErr(), time.Now())
		}
		s.mu.Lock()
		s.sess = sess
		s.mu.Unlock()
		s.record(ev, len(sess.Text))
		s.deliver(ev)
	}

	s.log.Info("chat session finished",
		slog.String("state", sess.State.String()),
		slog.Int("tokens", sess.Tokens),
		slog.Int("audio_chunks", sess.AudioChunks),
		slog.Int64("audio_bytes", sess.AudioBytes),
		slog.Int("text_length", len(sess.Text)),
		slog.Duration("elapsed", sess.Elapsed(time.Now())))
}

// deliver hands an event to the caller, giving up only when the stream
// was abandoned and nobody is draining anymore.
func (s *Stream) deliver(ev session.Event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Stream) record(ev session.Event, textLen int) {
	mev := metrics.MetricsEvent{
		Name:  "session_transition",
		Time:  time.Now(),
		Value: ev.Elapsed.Seconds(),
		Tags: map[string]string{
			"session_id": ev.SessionID,
			"state":      ev.State.String(),
			"cause":      ev.Cause,
		},
		Fields: map[string]any{
			"tokens":       ev.Tokens,
			"audio_chunks": ev.AudioChunks,
			"audio_bytes":  ev.AudioBytes,
			"text_length":  textLen,
		},
	}
	// Streaming self-transitions are the high-rate ones; everything else
	// always reaches the observers.
	if ev.State == session.StateStreaming &&
		(ev.Cause == session.CauseToken || ev.Cause == session.CauseAudioChunk) {
		s.sampled.RecordEvent(mev)
		return
	}
	s.obs.RecordEvent(mev)
}
