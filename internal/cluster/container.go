package cluster

import "sync"

// Creator builds a new session of kind S keyed by K. view is the frozen
// messaging capability for the session; origin is the peer that requested
// it on our behalf, if any; creationData is kind-specific construction data
// (a Requester, servers-set-change migration parameters, or nil).
type Creator[K comparable, S ClusterSession[K]] func(view View, self NodeId, id K, origin *NodeId, creationData any) (S, error)

// SessionListener is notified every time a session leaves its container,
// successfully or not.
type SessionListener[K comparable, S ClusterSession[K]] interface {
	OnSessionRemoved(session S)
}

// SessionContainer is the typed registry for one session kind. Insert and
// Remove take an exclusive lock; Get and First take a shared one, so
// routing messages for one session never blocks lookups for another.
type SessionContainer[K comparable, S ClusterSession[K]] struct {
	mu        sync.RWMutex
	sessions  map[K]S
	listeners []SessionListener[K, S]
	preserve  bool
	create    Creator[K, S]
}

// NewSessionContainer builds an empty container that uses create to
// construct new sessions on Insert.
func NewSessionContainer[K comparable, S ClusterSession[K]](create Creator[K, S]) *SessionContainer[K, S] {
	return &SessionContainer[K, S]{
		sessions: make(map[K]S),
		create:   create,
	}
}

// Insert constructs and registers a new session under id. If isExclusive is
// set, insertion fails with ErrHasActiveSessions while any other session is
// still registered in this container (used by the single-admin-session
// constraint on servers-set-change). It otherwise fails with
// ErrDuplicateSessionId if id is already registered.
func (c *SessionContainer[K, S]) Insert(view View, self NodeId, id K, origin *NodeId, isExclusive bool, creationData any) (S, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero S
	if isExclusive && len(c.sessions) > 0 {
		return zero, ErrHasActiveSessions
	}
	if _, exists := c.sessions[id]; exists {
		return zero, ErrDuplicateSessionId
	}

	session, err := c.create(view, self, id, origin, creationData)
	if err != nil {
		return zero, err
	}
	c.sessions[id] = session
	return session, nil
}

// Get looks up a registered session. If includeFinished is false, a session
// that has already reached a terminal state (but not yet been removed) is
// reported as absent.
func (c *SessionContainer[K, S]) Get(id K, includeFinished bool) (S, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[id]
	if !ok {
		var zero S
		return zero, false
	}
	if !includeFinished && s.IsFinished() {
		var zero S
		return zero, false
	}
	return s, true
}

// First returns an arbitrary registered session, used by containers that
// only ever hold at most one (servers-set-change).
func (c *SessionContainer[K, S]) First() (S, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.sessions {
		return s, true
	}
	var zero S
	return zero, false
}

// Remove unregisters id, if present, and notifies every listener exactly
// once with the removed session. Listeners run outside the container lock.
func (c *SessionContainer[K, S]) Remove(id K) {
	c.mu.Lock()
	session, ok := c.sessions[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, id)
	listeners := make([]SessionListener[K, S], len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnSessionRemoved(session)
	}
}

// AddListener registers l to be notified of every future removal from this
// container.
func (c *SessionContainer[K, S]) AddListener(l SessionListener[K, S]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// PreserveSessions suppresses automatic removal of finished sessions,
// letting tests inspect terminal state before it disappears.
func (c *SessionContainer[K, S]) PreserveSessions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preserve = true
}

func (c *SessionContainer[K, S]) isPreserving() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preserve
}

// IsEmpty reports whether the container currently holds no sessions.
func (c *SessionContainer[K, S]) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) == 0
}

// removeIfFinished removes id if it is registered, finished, and the
// container is not preserving sessions. It is the shared tail of
// initialization and routing: both paths end a session's life the same
// way.
func (c *SessionContainer[K, S]) removeIfFinished(id K) {
	if c.isPreserving() {
		return
	}
	c.mu.RLock()
	s, ok := c.sessions[id]
	finished := ok && s.IsFinished()
	c.mu.RUnlock()
	if !finished {
		return
	}
	c.Remove(id)
}
