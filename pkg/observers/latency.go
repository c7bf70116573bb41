package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ihebkh25/TTS-Project/pkg/metrics"
)

// LatencyObserver logs time-to-first-token and time-to-first-audio for
// every session once it reaches a terminal state.
type LatencyObserver struct {
	mu       sync.Mutex
	sessions map[string]*latencyTrace
	log      *slog.Logger
}

type latencyTrace struct {
	connected  time.Time
	firstToken time.Time
	firstAudio time.Time
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		sessions: make(map[string]*latencyTrace),
		log:      log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	if ev.Name != "session_transition" || ev.Tags == nil {
		return
	}
	id := ev.Tags["session_id"]
	if id == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.sessions[id]
	if t == nil {
		t = &latencyTrace{}
		o.sessions[id] = t
	}
	switch ev.Tags["cause"] {
	case "connect":
		if t.connected.IsZero() {
			t.connected = ev.Time
		}
	case "token":
		if t.firstToken.IsZero() {
			t.firstToken = ev.Time
		}
	case "audio_chunk":
		if t.firstAudio.IsZero() {
			t.firstAudio = ev.Time
		}
	}
	if terminalState(ev.Tags["state"]) {
		o.log.Info("session latency",
			"session_id", id,
			"state", ev.Tags["state"],
			"ttft_ms", durationMs(t.connected, t.firstToken),
			"ttfa_ms", durationMs(t.connected, t.firstAudio),
			"total_ms", ev.Value*1000,
		)
		delete(o.sessions, id)
	}
}

func terminalState(s string) bool {
	return s == "completed" || s == "failed" || s == "disconnected"
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
