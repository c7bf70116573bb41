package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
	"github.com/ihebkh25/TTS-Project/pkg/frames"
	"github.com/ihebkh25/TTS-Project/pkg/protocol"
)

var testReq = protocol.Request{Message: "Hello, how are you?", Language: "en_US"}

func newStreaming(t *testing.T) Session {
	t.Helper()
	s := New("sess-1", testReq, time.Now())
	if s.State != StateConnecting {
		t.Fatalf("expected connecting start state, got %s", s.State)
	}
	s, ev := s.Connected(time.Now())
	if s.State != StateStreaming || ev.Cause != CauseConnect {
		t.Fatalf("expected streaming after connect, got %s/%s", s.State, ev.Cause)
	}
	return s
}

func apply(s Session, fs ...frames.Frame) Session {
	for _, f := range fs {
		s, _ = s.Apply(f, time.Now())
	}
	return s
}

func TestFullExchangeScenario(t *testing.T) {
	audio := bytes.Repeat([]byte{0x01}, 1024)
	s := newStreaming(t)
	s = apply(s,
		frames.NewStatusFrame("started", "generating reply"),
		frames.NewTokenFrame("Hi", "Hi"),
		frames.NewTokenFrame(" there", "Hi there"),
		frames.NewAudioFrame(audio, 22050),
		frames.NewStatusFrame(frames.PhaseComplete, "done").WithFinalText("Hi there"),
	)

	if s.State != StateCompleted {
		t.Fatalf("expected completed, got %s", s.State)
	}
	if s.Text != "Hi there" {
		t.Fatalf("expected final text %q, got %q", "Hi there", s.Text)
	}
	if s.Tokens != 2 {
		t.Fatalf("expected 2 tokens, got %d", s.Tokens)
	}
	if s.AudioChunks != 1 {
		t.Fatalf("expected 1 audio chunk, got %d", s.AudioChunks)
	}
	if s.AudioBytes != 1024 {
		t.Fatalf("expected 1024 audio bytes, got %d", s.AudioBytes)
	}
	if s.ImplicitCompletion {
		t.Fatalf("explicit completion must not be flagged implicit")
	}
}

func TestCompletionTextSupersedesTokens(t *testing.T) {
	s := newStreaming(t)
	s = apply(s,
		frames.NewTokenFrame("partial", "partial"),
		frames.NewStatusFrame(frames.PhaseComplete, "").WithFinalText("the full corrected reply"),
	)
	if s.Text != "the full corrected reply" {
		t.Fatalf("completion text must win, got %q", s.Text)
	}
}

func TestCompletionWithoutTextKeepsAccumulated(t *testing.T) {
	s := newStreaming(t)
	s = apply(s,
		frames.NewTokenFrame("Hi", "Hi"),
		frames.NewStatusFrame(frames.PhaseComplete, ""),
	)
	if s.State != StateCompleted || s.Text != "Hi" {
		t.Fatalf("expected completed with accumulated text, got %s %q", s.State, s.Text)
	}
}

func TestDeltaTokensAppendWhenNoCumulative(t *testing.T) {
	s := newStreaming(t)
	s = apply(s,
		frames.NewTokenFrame("Hi", ""),
		frames.NewTokenFrame(" there", ""),
	)
	if s.Text != "Hi there" {
		t.Fatalf("expected appended deltas, got %q", s.Text)
	}
	// A later cumulative snapshot replaces, never concatenates.
	s = apply(s, frames.NewTokenFrame("!", "Hi there!"))
	if s.Text != "Hi there!" {
		t.Fatalf("expected cumulative replace, got %q", s.Text)
	}
	if s.Tokens != 3 {
		t.Fatalf("expected 3 tokens, got %d", s.Tokens)
	}
}

func TestErrorFrameFailsImmediately(t *testing.T) {
	s := newStreaming(t)
	s, ev := s.Apply(frames.NewErrorFrame("backend overloaded"), time.Now())
	if s.State != StateFailed {
		t.Fatalf("expected failed, got %s", s.State)
	}
	if s.FailureMessage != "backend overloaded" {
		t.Fatalf("unexpected failure message: %q", s.FailureMessage)
	}
	if s.Tokens != 0 {
		t.Fatalf("expected 0 tokens, got %d", s.Tokens)
	}
	if !errorsx.HasReason(ev.Err, errorsx.ReasonProtocol) {
		t.Fatalf("expected protocol reason, got %s", errorsx.Reason(ev.Err))
	}

	// Frames after the error must not be processed.
	s = apply(s, frames.NewTokenFrame("late", "late"))
	if s.Tokens != 0 || s.Text != "" {
		t.Fatalf("terminal session must ignore frames, got %d %q", s.Tokens, s.Text)
	}
}

func TestUnknownFramesOnlyWarn(t *testing.T) {
	s := newStreaming(t)
	s = apply(s, frames.NewUnknownFrame("mel_frame", []byte(`{"type":"mel_frame"}`)))
	if s.State != StateStreaming {
		t.Fatalf("unknown frame must not change state, got %s", s.State)
	}
	if s.Tokens != 0 || s.AudioChunks != 0 {
		t.Fatalf("unknown frame must not change counts")
	}
	if s.Warnings != 1 {
		t.Fatalf("expected 1 warning, got %d", s.Warnings)
	}
}

func TestCleanCloseAfterFramesCompletes(t *testing.T) {
	s := newStreaming(t)
	s = apply(s, frames.NewTokenFrame("Hi", "Hi"))
	s, ev := s.Closed(nil, time.Now())
	if s.State != StateCompleted {
		t.Fatalf("expected completed, got %s", s.State)
	}
	if !s.ImplicitCompletion {
		t.Fatalf("expected implicit completion flag")
	}
	if ev.Err != nil {
		t.Fatalf("unexpected event error: %v", ev.Err)
	}
}

func TestCleanCloseWithZeroFramesDisconnects(t *testing.T) {
	s := newStreaming(t)
	s, ev := s.Closed(nil, time.Now())
	if s.State != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", s.State)
	}
	if !errorsx.HasReason(ev.Err, errorsx.ReasonAmbiguousClose) {
		t.Fatalf("expected ambiguous close reason, got %s", errorsx.Reason(ev.Err))
	}
}

func TestAbruptCloseFails(t *testing.T) {
	s := newStreaming(t)
	s = apply(s, frames.NewTokenFrame("Hi", "Hi"))
	s, ev := s.Closed(errors.New("connection reset"), time.Now())
	if s.State != StateFailed {
		t.Fatalf("expected failed, got %s", s.State)
	}
	if !errorsx.HasReason(ev.Err, errorsx.ReasonTransportRead) {
		t.Fatalf("expected transport read reason, got %s", errorsx.Reason(ev.Err))
	}
}

func TestCloseAfterExplicitCompletionKeepsState(t *testing.T) {
	s := newStreaming(t)
	s = apply(s, frames.NewStatusFrame(frames.PhaseComplete, "").WithFinalText("done"))
	before := s.State
	s, _ = s.Closed(nil, time.Now())
	if s.State != before {
		t.Fatalf("close after completion must not transition, got %s", s.State)
	}
}

func TestAbandonWithoutTerminalFrameDisconnects(t *testing.T) {
	s := newStreaming(t)
	s = apply(s, frames.NewTokenFrame("Hi", "Hi"))
	s, ev := s.Abandoned(time.Now())
	if s.State != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", s.State)
	}
	if !errorsx.HasReason(ev.Err, errorsx.ReasonAmbiguousClose) {
		t.Fatalf("expected ambiguous close reason, got %s", errorsx.Reason(ev.Err))
	}
}

func TestAbandonAfterFailureKeepsFailure(t *testing.T) {
	s := newStreaming(t)
	s = apply(s, frames.NewErrorFrame("boom"))
	s, _ = s.Abandoned(time.Now())
	if s.State != StateFailed {
		t.Fatalf("expected failure preserved, got %s", s.State)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	seq := []frames.Frame{
		frames.NewStatusFrame("started", ""),
		frames.NewTokenFrame("Hi", "Hi"),
		frames.NewUnknownFrame("future_kind", nil),
		frames.NewAudioFrame(bytes.Repeat([]byte{0x02}, 64), 22050),
		frames.NewTokenFrame(" there", "Hi there"),
		frames.NewStatusFrame(frames.PhaseComplete, "").WithFinalText("Hi there"),
	}

	run := func() Session {
		s := New("sess-replay", testReq, time.Unix(0, 0))
		s, _ = s.Connected(time.Unix(0, 0))
		for _, f := range seq {
			s, _ = s.Apply(f, time.Unix(1, 0))
		}
		s, _ = s.Closed(nil, time.Unix(2, 0))
		return s
	}

	a, b := run(), run()
	if a != b {
		t.Fatalf("replay diverged:\n%+v\n%+v", a, b)
	}
}

func TestEventsCarryCountsAndElapsed(t *testing.T) {
	start := time.Unix(100, 0)
	s := New("sess-ev", testReq, start)
	s, _ = s.Connected(start)
	s, ev := s.Apply(frames.NewAudioFrame(bytes.Repeat([]byte{0x03}, 512), 22050), start.Add(250*time.Millisecond))
	if ev.State != StateStreaming || ev.Cause != CauseAudioChunk {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Elapsed != 250*time.Millisecond {
		t.Fatalf("unexpected elapsed: %s", ev.Elapsed)
	}
	if ev.AudioChunks != 1 || ev.AudioBytes != 512 {
		t.Fatalf("unexpected counts: %d %d", ev.AudioChunks, ev.AudioBytes)
	}
	if ev.Audio == nil || ev.Audio.Size() != 512 {
		t.Fatalf("expected forwarded audio chunk")
	}
	_ = s
}
