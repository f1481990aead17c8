package protocol

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateLobby         SessionState = iota // connected, picking class
	StateInWorld                           // playing
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateLobby:
		return "Lobby"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for message handlers. The session
// pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, raw []byte)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message types to handlers with state-based access control.
type Registry struct {
	handlers map[string]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]*handlerEntry),
		log:      log,
	}
}

// Register maps a message type to a handler, restricted to the given states.
func (reg *Registry) Register(msgType string, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[msgType] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch decodes the type tag, validates the session state, and calls the
// handler. Unknown message types are dropped silently; a disallowed state
// returns an error so the caller can count it as malformed.
func (reg *Registry) Dispatch(sess any, state SessionState, raw []byte) error {
	msgType, err := PeekType(raw)
	if err != nil {
		return err
	}

	entry, ok := reg.handlers[msgType]
	if !ok {
		reg.log.Debug("unknown message type", zap.String("msgType", msgType))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("message not allowed in state",
			zap.String("msgType", msgType),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("message %q not allowed in state %s", msgType, state)
	}

	return reg.safeCall(entry.fn, sess, raw, msgType)
}

// safeCall executes a handler with panic recovery so a single bad message
// cannot crash the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, raw []byte, msgType string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("msgType", msgType),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %q: %v", msgType, rec)
		}
	}()
	fn(sess, raw)
	return nil
}
