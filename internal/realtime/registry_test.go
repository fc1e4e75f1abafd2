package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_BindAndLookup(t *testing.T) {
	r := NewRegistry()

	displaced := r.Bind("u1", "s1")
	assert.Empty(t, displaced)

	assert.Equal(t, "s1", r.SessionOf("u1"))
	assert.Equal(t, "u1", r.UserOf("s1"))
	assert.True(t, r.IsOnline("u1"))
	assert.False(t, r.IsOnline("u2"))
	assert.Empty(t, r.UserOf("unknown"))
}

func TestRegistry_SecondLoginDisplacesPriorSession(t *testing.T) {
	r := NewRegistry()

	r.Bind("u1", "s1")
	displaced := r.Bind("u1", "s2")

	assert.Equal(t, "s1", displaced)
	assert.Equal(t, "s2", r.SessionOf("u1"))
	assert.Equal(t, "u1", r.UserOf("s2"))
	// The displaced session is anonymous again.
	assert.Empty(t, r.UserOf("s1"))
	assert.True(t, r.IsOnline("u1"))
}

func TestRegistry_RebindSameSessionIsNoDisplacement(t *testing.T) {
	r := NewRegistry()

	r.Bind("u1", "s1")
	displaced := r.Bind("u1", "s1")

	assert.Empty(t, displaced)
	assert.Equal(t, "s1", r.SessionOf("u1"))
}

func TestRegistry_SessionSwitchingUsersDropsOldBinding(t *testing.T) {
	r := NewRegistry()

	r.Bind("u1", "s1")
	r.Bind("u2", "s1")

	assert.Equal(t, "u2", r.UserOf("s1"))
	assert.False(t, r.IsOnline("u1"))
	assert.True(t, r.IsOnline("u2"))
}

func TestRegistry_UnbindSession(t *testing.T) {
	r := NewRegistry()

	r.Bind("u1", "s1")
	userID := r.UnbindSession("s1")

	assert.Equal(t, "u1", userID)
	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.SessionOf("u1"))
	assert.Empty(t, r.UserOf("s1"))

	assert.Empty(t, r.UnbindSession("s1"), "second unbind is a no-op")
	assert.Empty(t, r.UnbindSession("never-bound"))
}

func TestRegistry_UnbindDisplacedSessionKeepsNewBinding(t *testing.T) {
	r := NewRegistry()

	r.Bind("u1", "s1")
	r.Bind("u1", "s2")

	// The stale session disconnecting must not take down the live binding.
	assert.Empty(t, r.UnbindSession("s1"))
	assert.Equal(t, "s2", r.SessionOf("u1"))
	assert.True(t, r.IsOnline("u1"))
}

func TestRegistry_BoundUsers(t *testing.T) {
	r := NewRegistry()

	assert.Empty(t, r.BoundUsers())

	r.Bind("u1", "s1")
	r.Bind("u2", "s2")
	assert.ElementsMatch(t, []string{"u1", "u2"}, r.BoundUsers())
}
