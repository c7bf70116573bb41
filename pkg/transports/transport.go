package transports

import (
	"context"

	"github.com/ihebkh25/TTS-Project/pkg/protocol"
)

// Transport is the boundary that opens one streaming connection, submits
// the request, and delivers raw inbound messages strictly in arrival order.
// Implementations own their network lifecycle; one Transport serves one
// session and is not reusable after its stream ends.
type Transport interface {
	Name() string

	// Connect dials the backend and submits the request. It must not be
	// called more than once.
	Connect(ctx context.Context, req protocol.Request) error

	// Recv yields raw inbound messages. The channel is closed when the
	// connection ends, whatever the cause.
	Recv() <-chan []byte

	// CloseErr reports how the stream ended once Recv is closed: nil for a
	// clean close, the underlying failure otherwise. A locally initiated
	// Close also reports nil.
	CloseErr() error

	// Close tears the connection down. Safe to call at any time and more
	// than once.
	Close() error
}
