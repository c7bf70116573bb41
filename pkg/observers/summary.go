package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ihebkh25/TTS-Project/pkg/metrics"
)

// SessionSummary is the per-session report written when the observer
// closes: what the original streaming client printed on exit, persisted.
type SessionSummary struct {
	SessionID     string  `json:"session_id"`
	FinalState    string  `json:"final_state"`
	Tokens        int     `json:"tokens"`
	AudioChunks   int     `json:"audio_chunks"`
	AudioBytes    int64   `json:"audio_bytes"`
	TextLength    int     `json:"text_length"`
	DurationSec   float64 `json:"duration_seconds"`
	RecordedAtUTC string  `json:"recorded_at_utc"`
}

// SummaryObserver folds session transition events into one summary per
// session and writes them out as JSON files on Close.
type SummaryObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*SessionSummary
}

func NewSummaryObserver(dir string) *SummaryObserver {
	return &SummaryObserver{dir: dir, stats: make(map[string]*SessionSummary)}
}

func (o *SummaryObserver) RecordEvent(ev metrics.MetricsEvent) {
	if strings.TrimSpace(o.dir) == "" || ev.Name != "session_transition" {
		return
	}
	id := ""
	if ev.Tags != nil {
		id = ev.Tags["session_id"]
	}
	if id == "" {
		return
	}

	o.mu.Lock()
	stat := o.stats[id]
	if stat == nil {
		stat = &SessionSummary{SessionID: id}
		o.stats[id] = stat
	}
	stat.FinalState = ev.Tags["state"]
	stat.DurationSec = ev.Value
	stat.Tokens = intField(ev.Fields, "tokens")
	stat.AudioChunks = intField(ev.Fields, "audio_chunks")
	stat.AudioBytes = int64(intField(ev.Fields, "audio_bytes"))
	stat.TextLength = intField(ev.Fields, "text_length")
	o.mu.Unlock()
}

func (o *SummaryObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	var errOut error
	for id, stat := range o.stats {
		stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
		b, err := json.MarshalIndent(stat, "", "  ")
		if err != nil {
			errOut = errors.Join(errOut, err)
			continue
		}
		path := filepath.Join(o.dir, sanitizeID(id)+".summary.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			errOut = errors.Join(errOut, err)
		}
	}
	return errOut
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

var _ metrics.Observer = (*SummaryObserver)(nil)
