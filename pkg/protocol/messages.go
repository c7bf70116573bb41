package protocol

// Wire type tags carried in the required "type" field of every inbound
// message. Any other value is routed to frames.UnknownFrame.
const (
	TypeStatus     = "status"
	TypeToken      = "token"
	TypeAudioChunk = "audio_chunk"
	TypeError      = "error"
)

type statusMessage struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Text    *string `json:"text,omitempty"`
}

type tokenMessage struct {
	Token string `json:"token"`
	// Text is the server's authoritative cumulative text so far.
	Text string `json:"text"`
}

type audioChunkMessage struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate"`
}

type errorMessage struct {
	Error string `json:"error"`
}
