package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// The two tagged unions on the wire are encoded as single-key objects, e.g.
// {"AccountName": "jdoe"} or {"Room": "general"}. Decoding rejects anything
// but exactly one known key.

func decodeVariant(data []byte) (string, string, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return "", "", err
	}
	if len(m) != 1 {
		return "", "", errors.New("protocol: expected exactly one variant key")
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", "", nil // unreachable
}

// LoginIdentity names the credential a player logs in with: an account name
// or an email address.
type LoginIdentity struct {
	kind  string
	value string
}

const (
	identAccountName = "AccountName"
	identEmail       = "Email"
)

// AccountNameIdentity builds an account-name login identity.
func AccountNameIdentity(name string) LoginIdentity {
	return LoginIdentity{kind: identAccountName, value: name}
}

// EmailIdentity builds an email login identity.
func EmailIdentity(email string) LoginIdentity {
	return LoginIdentity{kind: identEmail, value: email}
}

// AccountName returns the account name and whether that variant is set.
func (id LoginIdentity) AccountName() (string, bool) {
	return id.value, id.kind == identAccountName
}

// Email returns the email address and whether that variant is set.
func (id LoginIdentity) Email() (string, bool) {
	return id.value, id.kind == identEmail
}

// IsZero reports whether no variant is set.
func (id LoginIdentity) IsZero() bool {
	return id.kind == ""
}

func (id LoginIdentity) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return nil, errors.New("protocol: login identity has no variant")
	}
	return json.Marshal(map[string]string{id.kind: id.value})
}

func (id *LoginIdentity) UnmarshalJSON(data []byte) error {
	kind, value, err := decodeVariant(data)
	if err != nil {
		return err
	}
	switch kind {
	case identAccountName, identEmail:
		id.kind, id.value = kind, value
		return nil
	default:
		return fmt.Errorf("protocol: unknown identity variant %q", kind)
	}
}

// ChatChannel is the destination of a chat message: a named room, or a
// private whisper to one user.
type ChatChannel struct {
	kind  string
	value string
}

const (
	channelRoom    = "Room"
	channelPrivate = "PrivateMessage"
)

// RoomChannel addresses a room by id.
func RoomChannel(roomID string) ChatChannel {
	return ChatChannel{kind: channelRoom, value: roomID}
}

// PrivateChannel addresses a single user by id.
func PrivateChannel(userID string) ChatChannel {
	return ChatChannel{kind: channelPrivate, value: userID}
}

// Room returns the room id and whether the room variant is set.
func (c ChatChannel) Room() (string, bool) {
	return c.value, c.kind == channelRoom
}

// PrivateMessage returns the target user id and whether the whisper variant
// is set.
func (c ChatChannel) PrivateMessage() (string, bool) {
	return c.value, c.kind == channelPrivate
}

// IsZero reports whether no variant is set.
func (c ChatChannel) IsZero() bool {
	return c.kind == ""
}

// Kind labels the channel for logs and metrics: "room" or "whisper".
func (c ChatChannel) Kind() string {
	switch c.kind {
	case channelRoom:
		return "room"
	case channelPrivate:
		return "whisper"
	}
	return ""
}

func (c ChatChannel) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return nil, errors.New("protocol: chat channel has no variant")
	}
	return json.Marshal(map[string]string{c.kind: c.value})
}

func (c *ChatChannel) UnmarshalJSON(data []byte) error {
	kind, value, err := decodeVariant(data)
	if err != nil {
		return err
	}
	switch kind {
	case channelRoom, channelPrivate:
		c.kind, c.value = kind, value
		return nil
	default:
		return fmt.Errorf("protocol: unknown channel variant %q", kind)
	}
}
