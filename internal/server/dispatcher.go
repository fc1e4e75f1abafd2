package server

import (
	"context"
	"encoding/json"

	"warhorse/internal/featureflags"
	"warhorse/internal/i18n"
	"warhorse/internal/models"
	"warhorse/internal/observability"
	"warhorse/internal/protocol"
	"warhorse/internal/realtime"
	"warhorse/internal/service"
)

// handlerFunc handles one decoded envelope for one session.
type handlerFunc func(ctx context.Context, sess *realtime.Session, data json.RawMessage)

// emission is one outbound frame bound for one session, resolved under the
// state lock and written after it.
type emission struct {
	sess  *realtime.Session
	event string
	frame []byte
}

func (s *Server) registerHandlers() {
	s.handlers = map[string]handlerFunc{
		protocol.EventUserLogin:           s.handleLogin,
		protocol.EventUserRegister:        s.handleRegister,
		protocol.EventUserLogout:          s.handleLogout,
		protocol.EventUserBlock:           s.handleBlock,
		protocol.EventUserUnblock:         s.handleUnblock,
		protocol.EventFriendRequest:       s.handleFriendRequest,
		protocol.EventFriendRequestAccept: s.handleFriendRequestAccept,
		protocol.EventFriendRequestReject: s.handleFriendRequestReject,
		protocol.EventFriendRemove:        s.handleFriendRemove,
		protocol.EventChatSend:            s.handleChatSend,
	}
}

// HandleConnect registers a fresh session and greets it. The greeting is
// English; the client has not told us a language yet.
func (s *Server) HandleConnect(ctx context.Context, sess *realtime.Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	observability.SessionsOpen.Inc()
	s.log.LogConnect(ctx, sess.ID)

	s.send([]emission{s.encode(sess, protocol.EventHello, i18n.Hello(i18n.English))})
}

// HandleFrame routes one inbound frame. Malformed frames and unknown events
// are counted, logged, and dropped; they never produce an error event and
// never disconnect the session.
func (s *Server) HandleFrame(ctx context.Context, sess *realtime.Session, raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		observability.MalformedFramesTotal.WithLabelValues("bad_envelope").Inc()
		observability.GlobalLogger.WarnContext(ctx, "malformed frame ignored",
			"session_id", sess.ID, "error", err.Error())
		return
	}

	handler, ok := s.handlers[env.Event]
	if !ok {
		observability.MalformedFramesTotal.WithLabelValues("unknown_event").Inc()
		observability.GlobalLogger.WarnContext(ctx, "unknown event ignored",
			"session_id", sess.ID, "event", env.Event)
		return
	}

	ctx = observability.WithSessionID(ctx, sess.ID)
	ctx, span := observability.GetTraceLayer().TraceSocketEvent(ctx, "dispatcher", env.Event)
	defer span.End()

	handler(ctx, sess, env.Data)
}

// HandleDisconnect tears down a closed session: unbind, leave rooms, drop
// from the session table. With the presence-push flag enabled, the user's
// online friends get a friends-view refresh reflecting the new Offline
// status.
func (s *Server) HandleDisconnect(ctx context.Context, sess *realtime.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	userID := s.registry.UnbindSession(sess.ID)
	s.rooms.LeaveAll(sess.ID)

	var emissions []emission
	if userID != "" && s.flags.Enabled(featureflags.FlagPresencePush, userID) {
		emissions = s.presenceDeltaEmissions(ctx, userID)
	}
	s.mu.Unlock()

	observability.SessionsOpen.Dec()
	if userID != "" {
		observability.SessionsAuthenticated.Dec()
		s.presence.Unmark(ctx, userID)
	}
	s.log.LogDisconnect(observability.WithUserID(ctx, userID), sess.ID, "closed")

	s.send(emissions)
}

// presenceDeltaEmissions builds friends-view refreshes for every online
// friend of userID. Caller holds the state lock.
func (s *Server) presenceDeltaEmissions(ctx context.Context, userID string) []emission {
	friends, err := s.store.Friends(ctx, userID)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "presence delta skipped",
			"user_id", userID, "error", err.Error())
		return nil
	}
	var emissions []emission
	for _, friendID := range friends {
		target := s.sessionOfUser(friendID)
		if target == nil {
			continue
		}
		view, verr := s.social.FriendsView(ctx, friendID)
		if verr != nil {
			observability.GlobalLogger.WarnContext(ctx, "presence delta view failed",
				"user_id", friendID, "error", verr.Error())
			continue
		}
		emissions = append(emissions, s.encode(target, protocol.EventFriendsReceive, view))
	}
	return emissions
}

// runCommand executes one authenticated social command under the state
// lock, then emits the resulting refresh plan.
func (s *Server) runCommand(
	ctx context.Context,
	sess *realtime.Session,
	event string,
	lang i18n.Language,
	fn func(ctx context.Context, userID string) (service.RefreshPlan, error),
) {
	done := observability.TimeCommand(event)

	s.mu.Lock()
	userID := s.registry.UserOf(sess.ID)
	if userID == "" {
		s.mu.Unlock()
		s.emitError(ctx, sess, event, lang, models.Fail(i18n.CodeNotConnected))
		done(observability.OutcomeError)
		return
	}
	ctx = observability.WithUserID(ctx, userID)

	plan, err := fn(ctx, userID)
	if err != nil {
		s.mu.Unlock()
		s.emitError(ctx, sess, event, lang, err)
		done(observability.OutcomeError)
		return
	}
	emissions := s.planEmissions(ctx, plan)
	s.mu.Unlock()

	s.send(emissions)
	s.publishGraphTelemetry(ctx, plan)
	s.log.LogEvent(ctx, event, observability.OutcomeOK)
	done(observability.OutcomeOK)
}

// planEmissions resolves a refresh plan to concrete frames in the defined
// emission order: accepted notices, request views, friends views, blocked
// views. Targets without a session are dropped. Caller holds the state
// lock.
func (s *Server) planEmissions(ctx context.Context, plan service.RefreshPlan) []emission {
	var emissions []emission

	for _, notice := range plan.Accepted {
		target := s.sessionOfUser(notice.UserID)
		if target == nil {
			continue
		}
		payload := protocol.FriendRequestAccepted{Friend: notice.Friend}
		emissions = append(emissions, s.encode(target, protocol.EventFriendRequestAccepted, payload))
	}

	emissions = append(emissions, s.viewEmissions(ctx, plan.Requests, protocol.EventFriendRequestsReceive, s.social.FriendRequestsView)...)
	emissions = append(emissions, s.viewEmissions(ctx, plan.Friends, protocol.EventFriendsReceive, s.social.FriendsView)...)
	emissions = append(emissions, s.viewEmissions(ctx, plan.Blocked, protocol.EventBlockedUsersReceive, s.social.BlockedView)...)

	return emissions
}

func (s *Server) viewEmissions(
	ctx context.Context,
	userIDs []string,
	event string,
	view func(context.Context, string) ([]protocol.Friend, error),
) []emission {
	var emissions []emission
	for _, userID := range userIDs {
		target := s.sessionOfUser(userID)
		if target == nil {
			continue
		}
		entries, err := view(ctx, userID)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "view refresh failed",
				"event", event, "user_id", userID, "error", err.Error())
			continue
		}
		emissions = append(emissions, s.encode(target, event, entries))
	}
	return emissions
}

// sessionOfUser resolves a user to their live session. Caller holds the
// state lock.
func (s *Server) sessionOfUser(userID string) *realtime.Session {
	sessionID := s.registry.SessionOf(userID)
	if sessionID == "" {
		return nil
	}
	return s.sessions[sessionID]
}

func (s *Server) encode(sess *realtime.Session, event string, payload any) emission {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		// Payloads are our own types; this indicates a programming error.
		observability.GlobalLogger.Error("encode failed", "event", event, "error", err.Error())
		return emission{}
	}
	return emission{sess: sess, event: event, frame: frame}
}

// send writes emissions to their sessions. Runs without the state lock; a
// full or closed session drops the frame without failing anything.
func (s *Server) send(emissions []emission) {
	for _, e := range emissions {
		if e.sess == nil || e.frame == nil {
			continue
		}
		e.sess.TrySend(e.frame)
		observability.SocketEmitsTotal.WithLabelValues(e.event).Inc()
	}
}

// emitError sends exactly one localized error event for a failed command.
func (s *Server) emitError(ctx context.Context, sess *realtime.Session, event string, lang i18n.Language, err error) {
	s.log.LogError(ctx, event, err)
	s.send([]emission{s.encode(sess, protocol.EventError, models.Localize(err, lang))})
}

// publishGraphTelemetry announces formed friendships to sibling services.
// Advisory only; runs after the lock is dropped.
func (s *Server) publishGraphTelemetry(ctx context.Context, plan service.RefreshPlan) {
	for _, notice := range plan.Accepted {
		s.notifier.PublishFriendshipFormed(ctx, notice.UserID, notice.Friend.ID)
	}
}

func (s *Server) malformedPayload(ctx context.Context, sess *realtime.Session, event string, err error) {
	observability.MalformedFramesTotal.WithLabelValues("bad_payload").Inc()
	observability.SocketEventsTotal.WithLabelValues(event, observability.OutcomeIgnored).Inc()
	observability.GlobalLogger.WarnContext(ctx, "malformed payload ignored",
		"session_id", sess.ID, "event", event, "error", err.Error())
}

// language falls back to English for requests that carry no usable
// language.
func language(lang i18n.Language) i18n.Language {
	if lang.Valid() {
		return lang
	}
	return i18n.English
}
