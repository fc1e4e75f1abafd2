package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRooms_JoinAndMembership(t *testing.T) {
	r := NewRooms()

	assert.False(t, r.Exists(RoomGeneral))

	r.Join(RoomGeneral, "s1")
	r.Join(RoomGeneral, "s2")
	r.Join(RoomGeneral, "s2") // idempotent

	assert.True(t, r.Exists(RoomGeneral))
	assert.True(t, r.IsMember(RoomGeneral, "s1"))
	assert.True(t, r.IsMember(RoomGeneral, "s2"))
	assert.False(t, r.IsMember(RoomGeneral, "s3"))
	assert.Equal(t, []string{"s1", "s2"}, r.Members(RoomGeneral))
}

func TestRooms_LeaveRemovesEmptyRoom(t *testing.T) {
	r := NewRooms()

	r.Join("lobby", "s1")
	r.Leave("lobby", "s1")

	assert.False(t, r.Exists("lobby"))
	assert.Nil(t, r.Members("lobby"))

	r.Leave("lobby", "s1") // leaving again is a no-op
	r.Leave("never", "s1")
}

func TestRooms_LeaveAll(t *testing.T) {
	r := NewRooms()

	r.Join(RoomGeneral, "s1")
	r.Join("lobby", "s1")
	r.Join("lobby", "s2")

	left := r.LeaveAll("s1")

	assert.Equal(t, []string{RoomGeneral, "lobby"}, left)
	assert.False(t, r.IsMember(RoomGeneral, "s1"))
	assert.False(t, r.IsMember("lobby", "s1"))
	assert.True(t, r.IsMember("lobby", "s2"))
	assert.False(t, r.Exists(RoomGeneral))

	assert.Nil(t, r.LeaveAll("s1"), "second leave-all is empty")
}

func TestRooms_MembershipIsPerSessionNotPerUser(t *testing.T) {
	r := NewRooms()

	// Two sessions may sit in the same room independently; dropping one
	// never affects the other.
	r.Join(RoomGeneral, "sessA")
	r.Join(RoomGeneral, "sessB")
	r.LeaveAll("sessA")

	assert.Equal(t, []string{"sessB"}, r.Members(RoomGeneral))
}
