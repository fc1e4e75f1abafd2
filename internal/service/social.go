// Package service implements the social commands and the chat router. Every
// command validates, mutates the store, and returns a plan describing which
// users' views to re-send; the dispatcher owns turning plans into socket
// frames after it drops the state lock.
package service

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
	"warhorse/internal/protocol"
	"warhorse/internal/store"
	"warhorse/internal/validation"
)

// Presence reports whether a user currently has a live session. Implemented
// by realtime.Registry.
type Presence interface {
	IsOnline(userID string) bool
}

// AcceptedNotice is a direct notification that an outgoing friend request
// was accepted.
type AcceptedNotice struct {
	UserID string
	Friend protocol.Friend
}

// RefreshPlan names the users whose derived views changed under a command.
// Slices share the emission order: accepted notices first, then request
// views, then friends views, then blocked views.
type RefreshPlan struct {
	Accepted []AcceptedNotice
	Requests []string
	Friends  []string
	Blocked  []string
}

// IsEmpty reports whether the plan requires no emissions.
func (p RefreshPlan) IsEmpty() bool {
	return len(p.Accepted) == 0 && len(p.Requests) == 0 && len(p.Friends) == 0 && len(p.Blocked) == 0
}

// Social owns player identity and the relationship graph: registration,
// login, friend requests, friendships, and blocks.
type Social struct {
	store           store.Store
	presence        Presence
	verifyPasswords bool
}

// NewSocial builds the social service. With verifyPasswords false any
// password is accepted for an existing account at login.
func NewSocial(st store.Store, presence Presence, verifyPasswords bool) *Social {
	return &Social{store: st, presence: presence, verifyPasswords: verifyPasswords}
}

// Register validates a sign-up, hashes the password, and inserts the user.
// The caller binds the new user's session; registration doubles as login.
func (s *Social) Register(ctx context.Context, reg protocol.UserRegistration) (string, error) {
	if err := validation.Password(reg.Password); err != nil {
		return "", err
	}
	if err := validation.AccountName(reg.AccountName); err != nil {
		return "", err
	}
	if err := validation.DisplayName(reg.DisplayName); err != nil {
		return "", err
	}
	if err := validation.Email(reg.Email); err != nil {
		return "", err
	}

	if _, err := s.store.GetUserByAccountName(ctx, reg.AccountName); err == nil {
		return "", models.Fail(i18n.CodeAccountNameTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", models.NewInternalError(err)
	}
	if _, err := s.store.GetUserByEmail(ctx, reg.Email); err == nil {
		return "", models.Fail(i18n.CodeEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", models.NewInternalError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	lang := reg.Language
	if !lang.Valid() {
		lang = i18n.English
	}

	id, err := s.store.InsertUser(ctx, store.Registration{
		AccountName:  reg.AccountName,
		DisplayName:  reg.DisplayName,
		Email:        reg.Email,
		Language:     lang,
		PasswordHash: string(hash),
	})
	if err != nil {
		// A concurrent registration can win the uniqueness race between
		// the lookups above and the insert.
		if errors.Is(err, store.ErrDuplicate) {
			if _, nameErr := s.store.GetUserByAccountName(ctx, reg.AccountName); nameErr == nil {
				return "", models.Fail(i18n.CodeAccountNameTaken)
			}
			return "", models.Fail(i18n.CodeEmailTaken)
		}
		return "", models.NewInternalError(err)
	}
	return id, nil
}

// Login resolves the identity variant, looks the account up, and checks the
// password. Every failure is the same invalid-login kind so the response
// does not reveal whether the account exists.
func (s *Social) Login(ctx context.Context, req protocol.UserLogin) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if name, ok := req.Identity.AccountName(); ok {
		user, err = s.store.GetUserByAccountName(ctx, name)
	} else if email, ok := req.Identity.Email(); ok {
		user, err = s.store.GetUserByEmail(ctx, email)
	} else {
		return nil, models.Fail(i18n.CodeInvalidLogin)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.Fail(i18n.CodeInvalidLogin)
		}
		return nil, models.NewInternalError(err)
	}

	if s.verifyPasswords {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return nil, models.Fail(i18n.CodeInvalidLogin)
		}
	}
	return user, nil
}

// SendFriendRequest records a friend request from one user to another. A
// crossed request, where the target already invited the sender, finalizes
// the friendship instead. Self-targeted and repeated requests are silently
// ignored.
func (s *Social) SendFriendRequest(ctx context.Context, fromID, toID string) (RefreshPlan, error) {
	if fromID == toID {
		return RefreshPlan{}, nil
	}
	exists, err := s.store.UserExists(ctx, toID)
	if err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	if !exists {
		return RefreshPlan{}, models.Fail(i18n.CodeUnknownUser)
	}

	if blocked, berr := s.blockedEitherWay(ctx, fromID, toID); berr != nil {
		return RefreshPlan{}, berr
	} else if blocked {
		return RefreshPlan{}, models.Fail(i18n.CodeUserBlocked)
	}

	friends, err := s.areFriends(ctx, fromID, toID)
	if err != nil {
		return RefreshPlan{}, err
	}
	if friends {
		return RefreshPlan{}, models.Fail(i18n.CodeAlreadyFriends)
	}

	outgoing, err := s.requestExists(ctx, fromID, toID)
	if err != nil {
		return RefreshPlan{}, err
	}
	if outgoing {
		return RefreshPlan{}, nil
	}

	crossed, err := s.requestExists(ctx, toID, fromID)
	if err != nil {
		return RefreshPlan{}, err
	}
	if crossed {
		// Both sides asked; finalize instead of stacking a second request.
		if err := s.store.RemoveFriendRequest(ctx, toID, fromID); err != nil {
			return RefreshPlan{}, models.NewInternalError(err)
		}
		if err := s.store.AddFriend(ctx, fromID, toID); err != nil {
			return RefreshPlan{}, models.NewInternalError(err)
		}
		notice, err := s.acceptedNotice(ctx, fromID, toID)
		if err != nil {
			return RefreshPlan{}, err
		}
		return RefreshPlan{
			Accepted: []AcceptedNotice{notice},
			Requests: []string{fromID},
			Friends:  []string{fromID, toID},
		}, nil
	}

	if err := s.store.InsertFriendRequest(ctx, fromID, toID); err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	return RefreshPlan{
		Requests: []string{toID},
		Friends:  []string{fromID, toID},
	}, nil
}

// AcceptFriendRequest turns a pending incoming request into a friendship.
// Accepting a request that no longer exists is a silent no-op, mirroring
// reject.
func (s *Social) AcceptFriendRequest(ctx context.Context, acceptorID, otherID string) (RefreshPlan, error) {
	if acceptorID == otherID {
		return RefreshPlan{}, nil
	}
	exists, err := s.store.UserExists(ctx, otherID)
	if err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	if !exists {
		return RefreshPlan{}, models.Fail(i18n.CodeUnknownUser)
	}

	pending, err := s.requestExists(ctx, otherID, acceptorID)
	if err != nil {
		return RefreshPlan{}, err
	}
	if !pending {
		return RefreshPlan{}, nil
	}

	friends, err := s.areFriends(ctx, acceptorID, otherID)
	if err != nil {
		return RefreshPlan{}, err
	}
	if friends {
		return RefreshPlan{}, models.Fail(i18n.CodeAlreadyFriends)
	}

	if blocked, berr := s.blockedEitherWay(ctx, acceptorID, otherID); berr != nil {
		return RefreshPlan{}, berr
	} else if blocked {
		return RefreshPlan{}, models.Fail(i18n.CodeUserBlocked)
	}

	if err := s.store.RemoveFriendRequest(ctx, otherID, acceptorID); err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	if err := s.store.AddFriend(ctx, acceptorID, otherID); err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}

	notice, err := s.acceptedNotice(ctx, acceptorID, otherID)
	if err != nil {
		return RefreshPlan{}, err
	}
	return RefreshPlan{
		Accepted: []AcceptedNotice{notice},
		Friends:  []string{acceptorID, otherID},
	}, nil
}

// RejectFriendRequest drops a pending incoming request. Rejecting an absent
// request is a silent no-op.
func (s *Social) RejectFriendRequest(ctx context.Context, rejectorID, otherID string) (RefreshPlan, error) {
	pending, err := s.requestExists(ctx, otherID, rejectorID)
	if err != nil {
		return RefreshPlan{}, err
	}
	if !pending {
		return RefreshPlan{}, nil
	}

	if err := s.store.RemoveFriendRequest(ctx, otherID, rejectorID); err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	return RefreshPlan{
		Requests: []string{rejectorID},
		Friends:  []string{rejectorID, otherID},
	}, nil
}

// RemoveFriend tears down a friendship and any request either way between
// the pair.
func (s *Social) RemoveFriend(ctx context.Context, actorID, otherID string) (RefreshPlan, error) {
	if actorID == otherID {
		return RefreshPlan{}, nil
	}
	if err := s.removePairState(ctx, actorID, otherID); err != nil {
		return RefreshPlan{}, err
	}
	return RefreshPlan{Friends: []string{actorID, otherID}}, nil
}

// BlockUser blocks another user. Any friendship and any pending requests
// between the pair are removed in the same command, so the block never
// coexists with them.
func (s *Social) BlockUser(ctx context.Context, blockerID, blockedID string) (RefreshPlan, error) {
	if blockerID == blockedID {
		return RefreshPlan{}, nil
	}
	exists, err := s.store.UserExists(ctx, blockedID)
	if err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	if !exists {
		return RefreshPlan{}, models.Fail(i18n.CodeUnknownUser)
	}

	if err := s.removePairState(ctx, blockerID, blockedID); err != nil {
		return RefreshPlan{}, err
	}
	if err := s.store.InsertBlock(ctx, blockerID, blockedID); err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	return RefreshPlan{
		Friends: []string{blockerID, blockedID},
		Blocked: []string{blockerID},
	}, nil
}

// UnblockUser removes a block. Relationships the block tore down are not
// restored.
func (s *Social) UnblockUser(ctx context.Context, blockerID, blockedID string) (RefreshPlan, error) {
	if err := s.store.RemoveBlock(ctx, blockerID, blockedID); err != nil {
		return RefreshPlan{}, models.NewInternalError(err)
	}
	return RefreshPlan{
		Friends: []string{blockerID, blockedID},
		Blocked: []string{blockerID},
	}, nil
}

// FriendsView computes the viewer's social list: friends with presence
// status, pending requests in both directions, and blocked users. Each user
// appears once; order is stable (sorted by id); self is never listed.
func (s *Social) FriendsView(ctx context.Context, viewerID string) ([]protocol.Friend, error) {
	type related struct {
		id     string
		status protocol.FriendStatus
	}
	var rows []related
	seen := make(map[string]struct{})
	add := func(ids []string, status protocol.FriendStatus) {
		for _, id := range ids {
			if id == viewerID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rows = append(rows, related{id: id, status: status})
		}
	}

	friends, err := s.store.Friends(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range friends {
		status := protocol.StatusOffline
		if s.presence.IsOnline(id) {
			status = protocol.StatusOnline
		}
		add([]string{id}, status)
	}

	outgoing, err := s.store.OutgoingFriendRequests(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	add(outgoing, protocol.StatusFriendRequestSent)

	incoming, err := s.store.IncomingFriendRequests(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	add(incoming, protocol.StatusFriendRequestReceived)

	blocked, err := s.store.BlockedUsers(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	add(blocked, protocol.StatusBlocked)

	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	view := make([]protocol.Friend, 0, len(rows))
	for _, row := range rows {
		entry, ok := s.friendEntry(ctx, row.id, row.status)
		if !ok {
			continue
		}
		view = append(view, entry)
	}
	return view, nil
}

// FriendRequestsView lists the senders of the viewer's pending incoming
// requests. The client renders these as accept/reject prompts.
func (s *Social) FriendRequestsView(ctx context.Context, viewerID string) ([]protocol.Friend, error) {
	incoming, err := s.store.IncomingFriendRequests(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	view := make([]protocol.Friend, 0, len(incoming))
	for _, id := range incoming {
		entry, ok := s.friendEntry(ctx, id, protocol.StatusFriendRequestReceived)
		if !ok {
			continue
		}
		view = append(view, entry)
	}
	return view, nil
}

// BlockedView lists the users the viewer has blocked.
func (s *Social) BlockedView(ctx context.Context, viewerID string) ([]protocol.Friend, error) {
	blocked, err := s.store.BlockedUsers(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	view := make([]protocol.Friend, 0, len(blocked))
	for _, id := range blocked {
		entry, ok := s.friendEntry(ctx, id, protocol.StatusBlocked)
		if !ok {
			continue
		}
		view = append(view, entry)
	}
	return view, nil
}

// removePairState deletes the friendship and both pending requests between
// a and b.
func (s *Social) removePairState(ctx context.Context, a, b string) error {
	if err := s.store.RemoveFriend(ctx, a, b); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.store.RemoveFriendRequest(ctx, a, b); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.store.RemoveFriendRequest(ctx, b, a); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *Social) areFriends(ctx context.Context, a, b string) (bool, error) {
	friends, err := s.store.Friends(ctx, a)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	for _, id := range friends {
		if id == b {
			return true, nil
		}
	}
	return false, nil
}

func (s *Social) requestExists(ctx context.Context, fromID, toID string) (bool, error) {
	outgoing, err := s.store.OutgoingFriendRequests(ctx, fromID)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	for _, id := range outgoing {
		if id == toID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Social) blockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	ab, err := s.store.IsBlocked(ctx, a, b)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if ab {
		return true, nil
	}
	ba, err := s.store.IsBlocked(ctx, b, a)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return ba, nil
}

// acceptedNotice builds the direct notification for userID that friendID is
// now their friend.
func (s *Social) acceptedNotice(ctx context.Context, userID, friendID string) (AcceptedNotice, error) {
	status := protocol.StatusOffline
	if s.presence.IsOnline(friendID) {
		status = protocol.StatusOnline
	}
	entry, ok := s.friendEntry(ctx, friendID, status)
	if !ok {
		return AcceptedNotice{}, models.Fail(i18n.CodeUnknownUser)
	}
	return AcceptedNotice{UserID: userID, Friend: entry}, nil
}

// friendEntry resolves an id to a list entry. Dangling ids with no user row
// are skipped.
func (s *Social) friendEntry(ctx context.Context, id string, status protocol.FriendStatus) (protocol.Friend, bool) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return protocol.Friend{}, false
	}
	return protocol.Friend{ID: user.ID, DisplayName: user.DisplayName, Status: status}, true
}
