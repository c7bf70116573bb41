package frames

import "sync"

type Kind string

const (
	KindStatus  Kind = "status"
	KindToken   Kind = "token"
	KindAudio   Kind = "audio"
	KindError   Kind = "error"
	KindUnknown Kind = "unknown"
)

// PhaseComplete is the status phase that marks a successfully finished stream.
const PhaseComplete = "complete"

// Frame is one typed unit of data received over the streaming connection.
// Frames are immutable values consumed exactly once, in arrival order.
type Frame interface {
	Kind() Kind
}

// StatusFrame is a lifecycle progress marker from the backend. The
// "complete" phase may carry the authoritative final text of the reply.
type StatusFrame struct {
	phase    string
	detail   string
	final    string
	hasFinal bool
}

func NewStatusFrame(phase, detail string) StatusFrame {
	return StatusFrame{phase: phase, detail: detail}
}

// WithFinalText returns a copy carrying the final full text. The empty
// string is a valid final text, distinct from no final text at all.
func (s StatusFrame) WithFinalText(text string) StatusFrame {
	s.final = text
	s.hasFinal = true
	return s
}

func (s StatusFrame) Kind() Kind     { return KindStatus }
func (s StatusFrame) Phase() string  { return s.phase }
func (s StatusFrame) Detail() string { return s.detail }

func (s StatusFrame) FinalText() (string, bool) { return s.final, s.hasFinal }

// TokenFrame is one incremental unit of generated text. Cumulative is the
// server's running total; when empty, the token is a bare delta.
type TokenFrame struct {
	token      string
	cumulative string
}

func NewTokenFrame(token, cumulative string) TokenFrame {
	return TokenFrame{token: token, cumulative: cumulative}
}

func (t TokenFrame) Kind() Kind         { return KindToken }
func (t TokenFrame) Token() string      { return t.token }
func (t TokenFrame) Cumulative() string { return t.cumulative }

// AudioFrame is one unit of synthesized audio in emission order.
type AudioFrame struct {
	data   []byte
	rate   int
	pooled bool
}

func NewAudioFrame(data []byte, rate int) AudioFrame {
	return AudioFrame{data: data, rate: rate}
}

// NewPooledAudioFrame takes ownership of a buffer obtained from
// AcquireAudioBuf. The frame must be handed to ReleaseAudioFrame once the
// payload is no longer needed.
func NewPooledAudioFrame(data []byte, rate int) AudioFrame {
	return AudioFrame{data: data, rate: rate, pooled: true}
}

func (a AudioFrame) Kind() Kind         { return KindAudio }
func (a AudioFrame) Data() []byte       { return append([]byte(nil), a.data...) }
func (a AudioFrame) RawPayload() []byte { return a.data }
func (a AudioFrame) SampleRate() int    { return a.rate }
func (a AudioFrame) Size() int          { return len(a.data) }

func ReleaseAudioFrame(f Frame) bool {
	af, ok := f.(AudioFrame)
	if !ok {
		if ap, ok := f.(*AudioFrame); ok {
			af = *ap
		} else {
			return false
		}
	}
	if af.pooled {
		ReleaseAudioBuf(af.data)
		return true
	}
	return false
}

// ErrorFrame is a terminal failure notification from the backend.
type ErrorFrame struct {
	message string
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{message: message}
}

func (e ErrorFrame) Kind() Kind      { return KindError }
func (e ErrorFrame) Message() string { return e.message }

// UnknownFrame carries any message whose type tag is unrecognized. It must
// never abort a session; newer backends may emit kinds we do not know yet.
type UnknownFrame struct {
	wireType string
	raw      []byte
}

func NewUnknownFrame(wireType string, raw []byte) UnknownFrame {
	return UnknownFrame{wireType: wireType, raw: append([]byte(nil), raw...)}
}

func (u UnknownFrame) Kind() Kind       { return KindUnknown }
func (u UnknownFrame) WireType() string { return u.wireType }
func (u UnknownFrame) Raw() []byte      { return append([]byte(nil), u.raw...) }

var audioBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

func AcquireAudioBuf(size int) []byte {
	b := audioBufPool.Get().([]byte)
	if cap(b) < size {
		return make([]byte, size)
	}
	return b[:size]
}

func ReleaseAudioBuf(b []byte) {
	audioBufPool.Put(b[:0])
}
