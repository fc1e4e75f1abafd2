package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
	"warhorse/internal/protocol"
	"warhorse/internal/store"
)

type fakePresence map[string]bool

func (f fakePresence) IsOnline(userID string) bool { return f[userID] }

func newSocial(t *testing.T) (*Social, store.Store, fakePresence) {
	t.Helper()
	st := store.NewMemory()
	presence := fakePresence{}
	return NewSocial(st, presence, false), st, presence
}

func mustRegister(t *testing.T, s *Social, name string) string {
	t.Helper()
	id, err := s.Register(context.Background(), protocol.UserRegistration{
		Language:    i18n.English,
		AccountName: name,
		Email:       name + "@example.com",
		DisplayName: strings.ToUpper(name[:1]) + name[1:],
		Password:    "password",
	})
	require.NoError(t, err)
	return id
}

func statusOf(view []protocol.Friend, id string) (protocol.FriendStatus, bool) {
	for _, f := range view {
		if f.ID == id {
			return f.Status, true
		}
	}
	return "", false
}

func TestRegister_FieldBoundaries(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*protocol.UserRegistration)
		wantCode i18n.Code
	}{
		{"password 7 bytes", func(r *protocol.UserRegistration) { r.Password = "1234567" }, i18n.CodeInvalidPassword},
		{"password 8 bytes", func(r *protocol.UserRegistration) { r.Password = "12345678" }, ""},
		{"account name 2 bytes", func(r *protocol.UserRegistration) { r.AccountName = "ab" }, i18n.CodeInvalidAccountName},
		{"account name 3 bytes", func(r *protocol.UserRegistration) { r.AccountName = "abc" }, ""},
		{"account name 20 bytes", func(r *protocol.UserRegistration) { r.AccountName = strings.Repeat("a", 20) }, ""},
		{"account name 21 bytes", func(r *protocol.UserRegistration) { r.AccountName = strings.Repeat("a", 21) }, i18n.CodeInvalidAccountName},
		{"display name 2 bytes", func(r *protocol.UserRegistration) { r.DisplayName = "ab" }, i18n.CodeInvalidDisplayName},
		{"display name 21 bytes", func(r *protocol.UserRegistration) { r.DisplayName = strings.Repeat("d", 21) }, i18n.CodeInvalidDisplayName},
		{"minimal email", func(r *protocol.UserRegistration) { r.Email = "a@b.c" }, ""},
		{"email missing local part", func(r *protocol.UserRegistration) { r.Email = "@b.c" }, i18n.CodeInvalidEmail},
		{"email missing domain", func(r *protocol.UserRegistration) { r.Email = "a@" }, i18n.CodeInvalidEmail},
		{"email over 254 bytes", func(r *protocol.UserRegistration) {
			r.Email = strings.Repeat("x", 251) + "@b.c"
		}, i18n.CodeInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newSocial(t)
			reg := protocol.UserRegistration{
				Language:    i18n.English,
				AccountName: "player",
				Email:       "player@example.com",
				DisplayName: "Player",
				Password:    "password",
			}
			tt.mutate(&reg)

			_, err := s.Register(context.Background(), reg)
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, models.CodeOf(err))
			}
		})
	}
	_ = ctx
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	mustRegister(t, s, "alice")

	_, err := s.Register(ctx, protocol.UserRegistration{
		AccountName: "ALICE",
		Email:       "other@example.com",
		DisplayName: "Other",
		Password:    "password",
	})
	require.Error(t, err)
	assert.Equal(t, i18n.CodeAccountNameTaken, models.CodeOf(err))

	_, err = s.Register(ctx, protocol.UserRegistration{
		AccountName: "other",
		Email:       "Alice@Example.COM",
		DisplayName: "Other",
		Password:    "password",
	})
	require.Error(t, err)
	assert.Equal(t, i18n.CodeEmailTaken, models.CodeOf(err))
}

func TestRegister_HashesPassword(t *testing.T) {
	s, st, _ := newSocial(t)
	ctx := context.Background()

	id := mustRegister(t, s, "alice")
	user, err := st.GetUser(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, "password", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password")))
}

func TestLogin_ByAccountNameAndEmail(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	id := mustRegister(t, s, "alice")

	user, err := s.Login(ctx, protocol.UserLogin{
		Identity: protocol.AccountNameIdentity("Alice"),
		Password: "anything", // reference contract: any password for an existing account
	})
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)

	user, err = s.Login(ctx, protocol.UserLogin{
		Identity: protocol.EmailIdentity("alice@example.com"),
		Password: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
}

func TestLogin_FailuresAreAlwaysInvalidLogin(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	mustRegister(t, s, "alice")

	_, err := s.Login(ctx, protocol.UserLogin{Identity: protocol.AccountNameIdentity("nobody")})
	require.Error(t, err)
	assert.Equal(t, i18n.CodeInvalidLogin, models.CodeOf(err))

	_, err = s.Login(ctx, protocol.UserLogin{})
	require.Error(t, err)
	assert.Equal(t, i18n.CodeInvalidLogin, models.CodeOf(err))
}

func TestLogin_VerifiedPasswords(t *testing.T) {
	st := store.NewMemory()
	s := NewSocial(st, fakePresence{}, true)
	ctx := context.Background()

	_, err := s.Register(ctx, protocol.UserRegistration{
		AccountName: "alice",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Password:    "correct horse",
	})
	require.NoError(t, err)

	_, err = s.Login(ctx, protocol.UserLogin{
		Identity: protocol.AccountNameIdentity("alice"),
		Password: "wrong horse",
	})
	require.Error(t, err)
	assert.Equal(t, i18n.CodeInvalidLogin, models.CodeOf(err))

	_, err = s.Login(ctx, protocol.UserLogin{
		Identity: protocol.AccountNameIdentity("alice"),
		Password: "correct horse",
	})
	assert.NoError(t, err)
}

func TestSendFriendRequest_PlanAndViews(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	plan, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.Empty(t, plan.Accepted)
	assert.Equal(t, []string{bob}, plan.Requests)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)

	aliceView, err := s.FriendsView(ctx, alice)
	require.NoError(t, err)
	status, ok := statusOf(aliceView, bob)
	require.True(t, ok)
	assert.Equal(t, protocol.StatusFriendRequestSent, status)

	bobView, err := s.FriendsView(ctx, bob)
	require.NoError(t, err)
	status, ok = statusOf(bobView, alice)
	require.True(t, ok)
	assert.Equal(t, protocol.StatusFriendRequestReceived, status)

	requests, err := s.FriendRequestsView(ctx, bob)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, alice, requests[0].ID)
	assert.Equal(t, "Alice", requests[0].DisplayName)
	assert.Equal(t, protocol.StatusFriendRequestReceived, requests[0].Status)
}

func TestSendFriendRequest_SilentNoOps(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	// Self-target is ignored without error.
	plan, err := s.SendFriendRequest(ctx, alice, alice)
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())

	// A repeated identical request is ignored.
	_, err = s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	plan, err = s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func TestSendFriendRequest_Failures(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	_, err := s.SendFriendRequest(ctx, alice, "missing")
	require.Error(t, err)
	assert.Equal(t, i18n.CodeUnknownUser, models.CodeOf(err))

	_, err = s.BlockUser(ctx, bob, alice)
	require.NoError(t, err)
	_, err = s.SendFriendRequest(ctx, alice, bob)
	require.Error(t, err)
	assert.Equal(t, i18n.CodeUserBlocked, models.CodeOf(err))

	_, err = s.UnblockUser(ctx, bob, alice)
	require.NoError(t, err)
	_, err = s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	_, err = s.SendFriendRequest(ctx, alice, bob)
	require.Error(t, err)
	assert.Equal(t, i18n.CodeAlreadyFriends, models.CodeOf(err))
}

func TestSendFriendRequest_CrossedRequestsAutoAccept(t *testing.T) {
	s, st, presence := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")
	presence[alice] = true
	presence[bob] = true

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)

	// Bob answers with his own request instead of an accept.
	plan, err := s.SendFriendRequest(ctx, bob, alice)
	require.NoError(t, err)

	require.Len(t, plan.Accepted, 1)
	assert.Equal(t, bob, plan.Accepted[0].UserID)
	assert.Equal(t, alice, plan.Accepted[0].Friend.ID)
	assert.Equal(t, protocol.StatusOnline, plan.Accepted[0].Friend.Status)
	assert.Equal(t, []string{bob}, plan.Requests)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)

	friends, err := st.Friends(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, friends)
	friends, err = st.Friends(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, friends)

	// No request remains in either direction.
	requests, err := s.FriendRequestsView(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, requests)
	requests, err = s.FriendRequestsView(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestAcceptFriendRequest(t *testing.T) {
	s, _, presence := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")
	presence[alice] = true

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)

	plan, err := s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	require.Len(t, plan.Accepted, 1)
	assert.Equal(t, bob, plan.Accepted[0].UserID)
	assert.Equal(t, alice, plan.Accepted[0].Friend.ID)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)

	// Alice is online, Bob is not: each sees the other's presence.
	bobView, err := s.FriendsView(ctx, bob)
	require.NoError(t, err)
	status, _ := statusOf(bobView, alice)
	assert.Equal(t, protocol.StatusOnline, status)

	aliceView, err := s.FriendsView(ctx, alice)
	require.NoError(t, err)
	status, _ = statusOf(aliceView, bob)
	assert.Equal(t, protocol.StatusOffline, status)
}

func TestAcceptFriendRequest_AbsentRequestIsNoOp(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	plan, err := s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())

	_, err = s.AcceptFriendRequest(ctx, bob, "missing")
	require.Error(t, err)
	assert.Equal(t, i18n.CodeUnknownUser, models.CodeOf(err))
}

func TestRejectFriendRequest(t *testing.T) {
	s, _, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)

	plan, err := s.RejectFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, plan.Requests)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)

	view, err := s.FriendsView(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, view)

	// Rejecting again is silent.
	plan, err = s.RejectFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func TestRemoveFriend_RoundTrip(t *testing.T) {
	s, st, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)

	plan, err := s.RemoveFriend(ctx, alice, bob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)

	friends, err := st.Friends(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, friends)
	friends, err = st.Friends(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestBlockUser_TearsDownRelationship(t *testing.T) {
	s, st, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)

	plan, err := s.BlockUser(ctx, bob, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)
	assert.Equal(t, []string{bob}, plan.Blocked)

	// Friendship is gone in both directions; the block exists.
	friends, err := st.Friends(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, friends)
	blocked, err := st.IsBlocked(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, blocked)

	// Bob sees Alice as blocked; Alice no longer sees Bob at all.
	bobView, err := s.FriendsView(ctx, bob)
	require.NoError(t, err)
	status, ok := statusOf(bobView, alice)
	require.True(t, ok)
	assert.Equal(t, protocol.StatusBlocked, status)

	aliceView, err := s.FriendsView(ctx, alice)
	require.NoError(t, err)
	_, ok = statusOf(aliceView, bob)
	assert.False(t, ok)

	blockedView, err := s.BlockedView(ctx, bob)
	require.NoError(t, err)
	require.Len(t, blockedView, 1)
	assert.Equal(t, alice, blockedView[0].ID)
	assert.Equal(t, protocol.StatusBlocked, blockedView[0].Status)
}

func TestBlockUser_RemovesPendingRequests(t *testing.T) {
	s, st, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)

	_, err = s.BlockUser(ctx, alice, bob)
	require.NoError(t, err)

	incoming, err := st.IncomingFriendRequests(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, incoming)
	outgoing, err := st.OutgoingFriendRequests(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, outgoing)
}

func TestUnblock_DoesNotRestoreFriendship(t *testing.T) {
	s, st, _ := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")

	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	_, err = s.BlockUser(ctx, bob, alice)
	require.NoError(t, err)

	plan, err := s.UnblockUser(ctx, bob, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice, bob}, plan.Friends)
	assert.Equal(t, []string{bob}, plan.Blocked)

	blocked, err := st.IsBlocked(ctx, bob, alice)
	require.NoError(t, err)
	assert.False(t, blocked)
	friends, err := st.Friends(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, friends, "unblock must not resurrect the friendship")
}

func TestFriendsView_DeduplicatedSortedSelfExcluded(t *testing.T) {
	s, _, presence := newSocial(t)
	ctx := context.Background()
	alice := mustRegister(t, s, "alice")
	bob := mustRegister(t, s, "bob")
	carol := mustRegister(t, s, "carol")
	dave := mustRegister(t, s, "dave")
	presence[bob] = true

	// bob: friend (online), carol: outgoing request, dave: blocked.
	_, err := s.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = s.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)
	_, err = s.SendFriendRequest(ctx, alice, carol)
	require.NoError(t, err)
	_, err = s.BlockUser(ctx, alice, dave)
	require.NoError(t, err)

	view, err := s.FriendsView(ctx, alice)
	require.NoError(t, err)
	require.Len(t, view, 3)

	ids := make([]string, 0, len(view))
	for _, f := range view {
		ids = append(ids, f.ID)
		assert.NotEqual(t, alice, f.ID, "self never listed")
	}
	assert.IsIncreasing(t, ids)

	status, _ := statusOf(view, bob)
	assert.Equal(t, protocol.StatusOnline, status)
	status, _ = statusOf(view, carol)
	assert.Equal(t, protocol.StatusFriendRequestSent, status)
	status, _ = statusOf(view, dave)
	assert.Equal(t, protocol.StatusBlocked, status)

	// A friend dropping offline shows up on the next view computation.
	delete(presence, bob)
	view, err = s.FriendsView(ctx, alice)
	require.NoError(t, err)
	status, _ = statusOf(view, bob)
	assert.Equal(t, protocol.StatusOffline, status)
}
