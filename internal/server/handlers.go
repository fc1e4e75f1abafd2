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

func (s *Server) handleLogin(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.UserLogin
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventUserLogin, err)
		return
	}
	lang := language(req.Language)
	done := observability.TimeCommand(protocol.EventUserLogin)

	s.mu.Lock()
	user, err := s.social.Login(ctx, req)
	if err != nil {
		s.mu.Unlock()
		s.emitError(ctx, sess, protocol.EventUserLogin, lang, err)
		done(observability.OutcomeError)
		return
	}
	displacedSess, emissions := s.bindLocked(ctx, user.ID, sess)
	s.mu.Unlock()

	s.finishBind(ctx, sess, user.ID, displacedSess, emissions)
	done(observability.OutcomeOK)
}

func (s *Server) handleRegister(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.UserRegistration
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventUserRegister, err)
		return
	}
	lang := language(req.Language)
	done := observability.TimeCommand(protocol.EventUserRegister)

	s.mu.Lock()
	userID, err := s.social.Register(ctx, req)
	if err != nil {
		s.mu.Unlock()
		s.emitError(ctx, sess, protocol.EventUserRegister, lang, err)
		done(observability.OutcomeError)
		return
	}
	// Registration doubles as login for the new account.
	displacedSess, emissions := s.bindLocked(ctx, userID, sess)
	s.mu.Unlock()

	s.finishBind(ctx, sess, userID, displacedSess, emissions)
	done(observability.OutcomeOK)
}

// bindLocked binds userID to sess, joins the general room, and builds the
// login acknowledgement plus the initial state snapshot so a fresh session
// renders without polling. Caller holds the state lock.
func (s *Server) bindLocked(ctx context.Context, userID string, sess *realtime.Session) (*realtime.Session, []emission) {
	wasBound := s.registry.UserOf(sess.ID) != ""
	displaced := s.registry.Bind(userID, sess.ID)
	var displacedSess *realtime.Session
	if displaced != "" {
		// The displaced session is anonymous again and loses its rooms.
		displacedSess = s.sessions[displaced]
		s.rooms.LeaveAll(displaced)
	} else if !wasBound {
		observability.SessionsAuthenticated.Inc()
	}
	s.rooms.Join(realtime.RoomGeneral, sess.ID)

	emissions := []emission{s.encode(sess, protocol.EventUserLogin, struct{}{})}
	emissions = append(emissions, s.planEmissions(ctx, service.RefreshPlan{
		Requests: []string{userID},
		Friends:  []string{userID},
		Blocked:  []string{userID},
	})...)
	return displacedSess, emissions
}

// finishBind runs the post-lock half of login and registration: presence,
// emissions, and optional displacement close.
func (s *Server) finishBind(ctx context.Context, sess *realtime.Session, userID string, displacedSess *realtime.Session, emissions []emission) {
	ctx = observability.WithUserID(ctx, userID)
	s.presence.Mark(ctx, userID)
	s.send(emissions)
	s.log.LogBind(ctx, sess.ID, userID)

	if displacedSess != nil && s.flags.Enabled(featureflags.FlagDisplaceClose, userID) {
		s.log.LogDisconnect(ctx, displacedSess.ID, "displaced")
		displacedSess.Close()
	}
}

func (s *Server) handleLogout(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	_ = data
	done := observability.TimeCommand(protocol.EventUserLogout)

	s.mu.Lock()
	userID := s.registry.UnbindSession(sess.ID)
	s.rooms.LeaveAll(sess.ID)
	s.mu.Unlock()

	if userID != "" {
		observability.SessionsAuthenticated.Dec()
		s.presence.Unmark(ctx, userID)
		s.log.LogUnbind(observability.WithUserID(ctx, userID), sess.ID, userID, "logout")
	}
	done(observability.OutcomeOK)
}

func (s *Server) handleBlock(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.BlockRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventUserBlock, err)
		return
	}
	s.runCommand(ctx, sess, protocol.EventUserBlock, language(req.Language),
		func(ctx context.Context, userID string) (service.RefreshPlan, error) {
			return s.social.BlockUser(ctx, userID, req.UserID)
		})
}

func (s *Server) handleUnblock(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.BlockRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventUserUnblock, err)
		return
	}
	s.runCommand(ctx, sess, protocol.EventUserUnblock, language(req.Language),
		func(ctx context.Context, userID string) (service.RefreshPlan, error) {
			return s.social.UnblockUser(ctx, userID, req.UserID)
		})
}

func (s *Server) handleFriendRequest(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.FriendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventFriendRequest, err)
		return
	}
	s.runCommand(ctx, sess, protocol.EventFriendRequest, language(req.Language),
		func(ctx context.Context, userID string) (service.RefreshPlan, error) {
			return s.social.SendFriendRequest(ctx, userID, req.FriendID)
		})
}

func (s *Server) handleFriendRequestAccept(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.FriendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventFriendRequestAccept, err)
		return
	}
	s.runCommand(ctx, sess, protocol.EventFriendRequestAccept, language(req.Language),
		func(ctx context.Context, userID string) (service.RefreshPlan, error) {
			return s.social.AcceptFriendRequest(ctx, userID, req.FriendID)
		})
}

func (s *Server) handleFriendRequestReject(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.FriendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventFriendRequestReject, err)
		return
	}
	s.runCommand(ctx, sess, protocol.EventFriendRequestReject, language(req.Language),
		func(ctx context.Context, userID string) (service.RefreshPlan, error) {
			return s.social.RejectFriendRequest(ctx, userID, req.FriendID)
		})
}

func (s *Server) handleFriendRemove(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.FriendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventFriendRemove, err)
		return
	}
	s.runCommand(ctx, sess, protocol.EventFriendRemove, language(req.Language),
		func(ctx context.Context, userID string) (service.RefreshPlan, error) {
			return s.social.RemoveFriend(ctx, userID, req.FriendID)
		})
}

func (s *Server) handleChatSend(ctx context.Context, sess *realtime.Session, data json.RawMessage) {
	var req protocol.SendChatMessage
	if err := json.Unmarshal(data, &req); err != nil {
		s.malformedPayload(ctx, sess, protocol.EventChatSend, err)
		return
	}
	lang := language(req.Language)
	done := observability.TimeCommand(protocol.EventChatSend)

	s.mu.Lock()
	userID := s.registry.UserOf(sess.ID)
	if userID == "" {
		s.mu.Unlock()
		s.emitError(ctx, sess, protocol.EventChatSend, lang, models.Fail(i18n.CodeNotConnected))
		done(observability.OutcomeError)
		return
	}
	ctx = observability.WithUserID(ctx, userID)

	plan, err := s.chat.Send(ctx, userID, sess.ID, req)
	if err != nil {
		s.mu.Unlock()
		s.emitError(ctx, sess, protocol.EventChatSend, lang, err)
		done(observability.OutcomeError)
		return
	}
	emissions := make([]emission, 0, len(plan.SessionIDs))
	for _, sessionID := range plan.SessionIDs {
		target := s.sessions[sessionID]
		if target == nil {
			continue
		}
		emissions = append(emissions, s.encode(target, protocol.EventChatReceive, plan.Message))
	}
	s.mu.Unlock()

	s.send(emissions)
	observability.ChatMessagesTotal.WithLabelValues(req.Channel.Kind()).Inc()
	s.log.LogEvent(ctx, protocol.EventChatSend, observability.OutcomeOK)
	done(observability.OutcomeOK)
}
