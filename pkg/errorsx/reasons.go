package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// ReasonValidate marks a request rejected before any connection attempt.
	ReasonValidate ReasonCode = "validate"

	// ReasonDecode marks a malformed inbound frame. Non-fatal: the frame is
	// logged and skipped, the session keeps streaming.
	ReasonDecode ReasonCode = "decode"

	// ReasonProtocol marks a backend-reported error frame. Fatal.
	ReasonProtocol ReasonCode = "protocol"

	// ReasonTransportDial and ReasonTransportRead mark connection-level
	// failures. Fatal.
	ReasonTransportDial ReasonCode = "transport_dial"
	ReasonTransportRead ReasonCode = "transport_read"

	// ReasonAmbiguousClose marks a connection that ended without any
	// terminal frame. Soft failure, never silently reported as success.
	ReasonAmbiguousClose ReasonCode = "ambiguous_close"
)
