package handler

import (
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
)

// RegisterAll wires every client message type into the registry with its
// allowed session states. Ping never reaches the registry: sessions answer
// it on the read goroutine for accurate latency.
func RegisterAll(reg *protocol.Registry, d *Deps) {
	lobby := []protocol.SessionState{protocol.StateLobby}
	inWorld := []protocol.SessionState{protocol.StateInWorld}

	reg.Register(protocol.CClassSelect, lobby, func(sess any, raw []byte) {
		handleClassSelect(d, sess.(*net.Session), raw)
	})
	reg.Register(protocol.CReady, lobby, func(sess any, raw []byte) {
		handleReady(d, sess.(*net.Session), raw)
	})
	reg.Register(protocol.CInput, inWorld, func(sess any, raw []byte) {
		handleInput(d, sess.(*net.Session), raw)
	})
	reg.Register(protocol.CAbilityRequest, inWorld, func(sess any, raw []byte) {
		handleAbilityRequest(d, sess.(*net.Session), raw)
	})
}
