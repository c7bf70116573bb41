package session

import (
	"time"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
	"github.com/ihebkh25/TTS-Project/pkg/frames"
	"github.com/ihebkh25/TTS-Project/pkg/protocol"
)

// State is the lifecycle state of one streaming exchange.
type State int

const (
	StateConnecting State = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateDisconnected
}

// Session is the full accumulated state of one streaming request/response
// exchange. It is a plain value: every transition takes a Session and
// returns an updated copy, so replaying the same frame sequence into a
// fresh session always reproduces the same final state.
type Session struct {
	ID      string
	Request protocol.Request

	State       State
	Phase       string
	PhaseDetail string

	Text        string
	Tokens      int
	AudioChunks int
	AudioBytes  int64

	// Frames counts every successfully decoded frame applied to the
	// session, unknown kinds included.
	Frames   int
	Warnings int

	FailureMessage string

	// ImplicitCompletion is set when the session completed through a clean
	// connection close rather than an explicit complete status.
	ImplicitCompletion bool

	StartedAt time.Time
	EndedAt   time.Time
}

func New(id string, req protocol.Request, now time.Time) Session {
	return Session{
		ID:        id,
		Request:   req,
		State:     StateConnecting,
		StartedAt: now,
	}
}

// Event is emitted on every state transition, self-transitions included.
type Event struct {
	SessionID   string
	State       State
	Cause       string
	Elapsed     time.Duration
	Tokens      int
	AudioChunks int
	AudioBytes  int64

	// Audio carries the chunk being forwarded when Cause is "audio_chunk".
	// Chunks are handed over as they arrive and never buffered for the
	// whole session.
	Audio *frames.AudioFrame

	// Token is the incremental text delta on "token" events; Phase and
	// Detail mirror the status frame on "status" events.
	Token  string
	Phase  string
	Detail string

	Err error
}

// Transition causes carried on events.
const (
	CauseConnect    = "connect"
	CauseClose      = "close"
	CauseStatus     = "status"
	CauseToken      = "token"
	CauseAudioChunk = "audio_chunk"
	CauseError      = "error"
	CauseUnknown    = "unknown"
)

// Connected moves the session from Connecting to Streaming after the
// request has been submitted.
func (s Session) Connected(now time.Time) (Session, Event) {
	s.State = StateStreaming
	return s, s.event(CauseConnect, now)
}

// Apply folds one decoded frame into the session. Terminal sessions ignore
// further frames; processing halts after an error frame.
func (s Session) Apply(f frames.Frame, now time.Time) (Session, Event) {
	if s.State.Terminal() {
		return s, s.event(CauseClose, now)
	}
	s.Frames++

	switch fr := f.(type) {
	case frames.StatusFrame:
		s.Phase = fr.Phase()
		s.PhaseDetail = fr.Detail()
		if fr.Phase() == frames.PhaseComplete {
			if text, ok := fr.FinalText(); ok {
				s.Text = text
			}
			s.State = StateCompleted
			s.EndedAt = now
		}
		ev := s.event(CauseStatus, now)
		ev.Phase = fr.Phase()
		ev.Detail = fr.Detail()
		return s, ev

	case frames.TokenFrame:
		s.Tokens++
		if fr.Cumulative() != "" {
			s.Text = fr.Cumulative()
		} else {
			s.Text += fr.Token()
		}
		ev := s.event(CauseToken, now)
		ev.Token = fr.Token()
		return s, ev

	case frames.AudioFrame:
		s.AudioChunks++
		s.AudioBytes += int64(fr.Size())
		ev := s.event(CauseAudioChunk, now)
		ev.Audio = &fr
		return s, ev

	case frames.ErrorFrame:
		s.State = StateFailed
		s.FailureMessage = fr.Message()
		s.EndedAt = now
		ev := s.event(CauseError, now)
		ev.Err = errorsx.New(fr.Message(), errorsx.ReasonProtocol)
		return s, ev

	default:
		s.Warnings++
		return s, s.event(CauseUnknown, now)
	}
}

// Closed folds the end of the connection into the session. A transport
// error fails the session; a clean close after at least one frame counts
// as completion; a clean close with nothing received is surfaced as a
// distinct Disconnected outcome, never as silent success.
func (s Session) Closed(err error, now time.Time) (Session, Event) {
	if s.State.Terminal() {
		if s.EndedAt.IsZero() {
			s.EndedAt = now
		}
		return s, s.event(CauseClose, now)
	}

	s.EndedAt = now
	switch {
	case err != nil:
		s.State = StateFailed
		s.FailureMessage = err.Error()
		ev := s.event(CauseClose, now)
		ev.Err = errorsx.Wrap(err, errorsx.ReasonTransportRead)
		return s, ev
	case s.Frames > 0:
		s.State = StateCompleted
		s.ImplicitCompletion = true
		return s, s.event(CauseClose, now)
	default:
		s.State = StateDisconnected
		ev := s.event(CauseClose, now)
		ev.Err = errorsx.New("connection closed before any frame arrived", errorsx.ReasonAmbiguousClose)
		return s, ev
	}
}

// Abandoned folds a caller-side cancellation into the session. Unless a
// terminal frame had already been seen, the outcome is Disconnected: the
// caller walked away, so success was never established.
func (s Session) Abandoned(now time.Time) (Session, Event) {
	if s.State.Terminal() {
		if s.EndedAt.IsZero() {
			s.EndedAt = now
		}
		return s, s.event(CauseClose, now)
	}
	s.State = StateDisconnected
	s.EndedAt = now
	ev := s.event(CauseClose, now)
	ev.Err = errorsx.New("session abandoned by caller", errorsx.ReasonAmbiguousClose)
	return s, ev
}

// Elapsed returns the time spent since the session started connecting.
func (s Session) Elapsed(now time.Time) time.Duration {
	if !s.EndedAt.IsZero() {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

func (s Session) event(cause string, now time.Time) Event {
	return Event{
		SessionID:   s.ID,
		State:       s.State,
		Cause:       cause,
		Elapsed:     now.Sub(s.StartedAt),
		Tokens:      s.Tokens,
		AudioChunks: s.AudioChunks,
		AudioBytes:  s.AudioBytes,
	}
}
