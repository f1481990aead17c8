package net

// SessionTable is the game loop's view of live sessions, keyed by session
// id. Owned and accessed by the game loop goroutine only; the I/O layer
// never touches it.
type SessionTable struct {
	sessions map[uint64]*Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[uint64]*Session)}
}

func (t *SessionTable) Add(s *Session) {
	t.sessions[s.ID] = s
}

func (t *SessionTable) Remove(id uint64) *Session {
	s, ok := t.sessions[id]
	if !ok {
		return nil
	}
	delete(t.sessions, id)
	return s
}

func (t *SessionTable) Get(id uint64) *Session {
	return t.sessions[id]
}

func (t *SessionTable) Count() int {
	return len(t.sessions)
}

// Each iterates all sessions in unspecified order.
func (t *SessionTable) Each(fn func(*Session)) {
	for _, s := range t.sessions {
		fn(s)
	}
}
