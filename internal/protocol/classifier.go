package protocol

// Reliability classifies an outgoing message for the transport layer.
type Reliability int

const (
	// BestEffort messages may be coalesced: only the latest matters.
	BestEffort Reliability = iota
	// Reliable messages must be delivered in order per connection, or the
	// session is reset.
	Reliable
)

// Classify returns the reliability class for a server→client message type.
// state and pong are latest-wins; everything event-shaped is reliable.
func Classify(msgType string) Reliability {
	switch msgType {
	case SState, SPong:
		return BestEffort
	default:
		return Reliable
	}
}
