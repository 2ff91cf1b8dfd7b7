package cluster

import (
	"errors"
	"log/slog"
)

// MessageRouter dispatches inbound peer messages to the session they target,
// creating the session first if the message is the initiating message of a
// kind that allows peers to start sessions on this node (every kind except
// servers-set-change's session-id constraint still applies there too).
type MessageRouter struct {
	self        NodeId
	sessions    *SessionRegistry
	connections ConnectionProvider
	connector   ServersSetChangeCreatorConnector
	metrics     RouterMetrics
	logger      *slog.Logger
}

// NewMessageRouter builds a router over sessions, using connections to
// build a fresh View for any session it creates in response to an inbound
// message. metrics may be nil.
func NewMessageRouter(self NodeId, sessions *SessionRegistry, connections ConnectionProvider, connector ServersSetChangeCreatorConnector, metrics RouterMetrics, logger *slog.Logger) *MessageRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageRouter{
		self:        self,
		sessions:    sessions,
		connections: connections,
		connector:   connector,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "cluster.router")),
	}
}

// Process applies one inbound message, routing it to the session it names
// and, once that session reaches a terminal state, removing it unless its
// container preserves sessions (and, for key-version negotiation,
// attempting the attached continuation first).
func (r *MessageRouter) Process(msg InboundMessage) {
	switch msg.Kind {
	case KindGeneration:
		if session, handled := dispatch(r, r.sessions.Generation, msg.ID, msg.From, msg.Payload, true); handled {
			r.recordRouted(msg.Kind)
			if session.IsFinished() {
				r.sessions.Generation.removeIfFinished(session.ID())
			}
		} else {
			r.recordDropped(msg.Kind)
		}
	case KindEncryption:
		if session, handled := dispatch(r, r.sessions.Encryption, msg.ID, msg.From, msg.Payload, true); handled {
			r.recordRouted(msg.Kind)
			if session.IsFinished() {
				r.sessions.Encryption.removeIfFinished(session.ID())
			}
		} else {
			r.recordDropped(msg.Kind)
		}
	case KindDecryption:
		id := CompoundSessionId{ID: msg.ID, Sub: msg.Sub}
		if session, handled := dispatch(r, r.sessions.Decryption, id, msg.From, msg.Payload, true); handled {
			r.recordRouted(msg.Kind)
			if session.IsFinished() {
				r.sessions.Decryption.removeIfFinished(session.ID())
			}
		} else {
			r.recordDropped(msg.Kind)
		}
	case KindSchnorrSign:
		id := CompoundSessionId{ID: msg.ID, Sub: msg.Sub}
		if session, handled := dispatch(r, r.sessions.SchnorrSign, id, msg.From, msg.Payload, true); handled {
			r.recordRouted(msg.Kind)
			if session.IsFinished() {
				r.sessions.SchnorrSign.removeIfFinished(session.ID())
			}
		} else {
			r.recordDropped(msg.Kind)
		}
	case KindEcdsaSign:
		id := CompoundSessionId{ID: msg.ID, Sub: msg.Sub}
		if session, handled := dispatch(r, r.sessions.EcdsaSign, id, msg.From, msg.Payload, true); handled {
			r.recordRouted(msg.Kind)
			if session.IsFinished() {
				r.sessions.EcdsaSign.removeIfFinished(session.ID())
			}
		} else {
			r.recordDropped(msg.Kind)
		}
	case KindKeyVersionNegotiation:
		id := CompoundSessionId{ID: msg.ID, Sub: msg.Sub}
		if session, handled := dispatch(r, r.sessions.Negotiation, id, msg.From, msg.Payload, true); handled {
			r.recordRouted(msg.Kind)
			if session.IsFinished() {
				continueSession(r.sessions, session)
				r.sessions.Negotiation.removeIfFinished(session.ID())
			}
		} else {
			r.recordDropped(msg.Kind)
		}
	case KindServersSetChange:
		r.dispatchServersSetChange(msg)
	default:
		r.logger.Warn("dropping message with unknown session kind", slog.Any("kind", msg.Kind))
		r.recordDropped(msg.Kind)
	}
}

func (r *MessageRouter) recordRouted(kind SessionKind) {
	if r.metrics != nil {
		r.metrics.IncMessagesRouted(kind.String())
	}
}

func (r *MessageRouter) recordDropped(kind SessionKind) {
	if r.metrics != nil {
		r.metrics.IncMessagesDropped(kind.String())
	}
}

// dispatch is the shared lookup/create/apply path used by every session
// kind except servers-set-change, which additionally constrains the session
// id and the exclusivity of its container.
//
// handled is false when the message was dropped outright: an unknown
// session that the message was not allowed to create, or a transport/view
// failure while building one. Callers that get handled=true are responsible
// for checking IsFinished and removing the session.
func dispatch[K comparable, S ClusterSession[K]](r *MessageRouter, container *SessionContainer[K, S], id K, from NodeId, payload any, canCreate bool) (S, bool) {
	var zero S

	session, ok := container.Get(id, true)
	if ok {
		if session.IsFinished() {
			return zero, false
		}
	} else {
		if !canCreate || !isInitiationPayload(payload) {
			r.logger.Debug("dropping message for unknown session", slog.String("peer", from.String()))
			return zero, false
		}
		view, _, err := newClusterView(r.self, r.connections)
		if err != nil {
			r.logger.Debug("failed to build cluster view for inbound session", slog.String("error", err.Error()))
			return zero, false
		}
		created, err := container.Insert(view, r.self, id, &from, false, nil)
		if err != nil {
			if !errors.Is(err, ErrDuplicateSessionId) {
				r.logger.Debug("failed to create session on first contact", slog.String("error", err.Error()))
				return zero, false
			}
			// Lost the race with a concurrently arriving message for the
			// same session: use whichever session won.
			existing, present := container.Get(id, true)
			if !present {
				return zero, false
			}
			session = existing
		} else {
			session = created
		}
	}

	if err := session.HandleMessage(from, payload); err != nil {
		if IsNonFatal(err) {
			r.logger.Debug("non-fatal session error", slog.String("error", err.Error()))
		} else {
			r.logger.Warn("fatal session error", slog.String("error", err.Error()))
		}
	}
	return session, true
}

func (r *MessageRouter) dispatchServersSetChange(msg InboundMessage) {
	if msg.ID != ServersSetChangeSessionID {
		r.logger.Debug("dropping servers-set-change message with unexpected session id")
		return
	}
	container := r.sessions.Admin

	session, ok := container.Get(msg.ID, true)
	if ok {
		if session.IsFinished() {
			return
		}
	} else {
		if !isInitiationPayload(msg.Payload) {
			r.logger.Debug("dropping message for unknown servers-set-change session")
			return
		}
		view, _, err := newClusterView(r.self, r.connections)
		if err != nil {
			r.logger.Debug("failed to build cluster view for inbound session", slog.String("error", err.Error()))
			return
		}
		created, err := container.Insert(view, r.self, msg.ID, &msg.From, true, nil)
		if err != nil {
			if !errors.Is(err, ErrDuplicateSessionId) && !errors.Is(err, ErrHasActiveSessions) {
				r.logger.Debug("failed to create servers-set-change session", slog.String("error", err.Error()))
				return
			}
			existing, present := container.Get(msg.ID, true)
			if !present {
				return
			}
			session = existing
		} else {
			session = created
			if r.connector != nil {
				r.connector.SetKeyServersSetChangeSession(session)
			}
		}
	}

	if err := session.HandleMessage(msg.From, msg.Payload); err != nil {
		if IsNonFatal(err) {
			r.logger.Debug("non-fatal session error", slog.String("error", err.Error()))
		} else {
			r.logger.Warn("fatal session error", slog.String("error", err.Error()))
		}
	}
	if session.IsFinished() {
		container.removeIfFinished(msg.ID)
	}
}

// isInitiationPayload reports whether payload is the opening message of a
// session, which the router is allowed to create a session in response to.
// A payload that does not implement SessionPayload is treated as
// non-initiating: the router never guesses.
func isInitiationPayload(payload any) bool {
	p, ok := payload.(SessionPayload)
	return ok && p.IsInitiation()
}
