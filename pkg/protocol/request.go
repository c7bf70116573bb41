package protocol

import (
	"net/url"

	"github.com/google/uuid"
)

// StreamPath is the WebSocket path for streaming chat exchanges.
const StreamPath = "/ws/chat/stream"

// Request carries the parameters of one streaming exchange. It is built by
// the caller before connecting and stays unchanged for the session lifetime.
type Request struct {
	Message        string
	Language       string
	ConversationID string
}

// Query encodes the request as the query parameters the backend expects on
// the stream URL.
func (r Request) Query() url.Values {
	q := url.Values{}
	q.Set("message", r.Message)
	q.Set("language", r.Language)
	if r.ConversationID != "" {
		q.Set("conversation_id", r.ConversationID)
	}
	return q
}

// StreamURL builds the full WebSocket URL for the request against the given
// endpoint, e.g. ws://localhost:8085.
func (r Request) StreamURL(endpoint string) string {
	return endpoint + StreamPath + "?" + r.Query().Encode()
}

// EnsureConversationID fills in a fresh UUID when the caller did not pin a
// conversation, mirroring what the backend would mint server-side, and
// returns the effective ID.
func (r *Request) EnsureConversationID() string {
	if r.ConversationID == "" {
		r.ConversationID = uuid.NewString()
	}
	return r.ConversationID
}
