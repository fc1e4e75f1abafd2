package protocol

import "warhorse/internal/i18n"

// FriendStatus is the relationship state shown next to a user in the social
// list. The wire form is the bare variant name.
type FriendStatus string

const (
	StatusOnline                FriendStatus = "Online"
	StatusOffline               FriendStatus = "Offline"
	StatusFriendRequestSent     FriendStatus = "FriendRequestSent"
	StatusFriendRequestReceived FriendStatus = "FriendRequestReceived"
	StatusBlocked               FriendStatus = "Blocked"
)

// Friend is one row of a player's social list as the client renders it.
// Account names and emails are never exposed here.
type Friend struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Status      FriendStatus `json:"status"`
}

// ChatMessage is a delivered chat line. Time is Unix seconds, UTC.
type ChatMessage struct {
	DisplayName string      `json:"display_name"`
	Channel     ChatChannel `json:"channel"`
	Message     string      `json:"message"`
	Time        int64       `json:"time"`
}

// UserLogin is the payload of a login attempt.
type UserLogin struct {
	Language i18n.Language `json:"language"`
	Identity LoginIdentity `json:"identity"`
	Password string        `json:"password"`
}

// UserRegistration is the payload of an account sign-up.
type UserRegistration struct {
	Language    i18n.Language `json:"language"`
	AccountName string        `json:"account_name"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	Password    string        `json:"password"`
}

// FriendRequest is the payload shared by the four friend commands: request,
// accept, reject, and remove.
type FriendRequest struct {
	Language i18n.Language `json:"language"`
	FriendID string        `json:"friend_id"`
}

// BlockRequest is the payload shared by block and unblock.
type BlockRequest struct {
	Language i18n.Language `json:"language"`
	UserID   string        `json:"user_id"`
}

// SendChatMessage is the payload of an outgoing chat line.
type SendChatMessage struct {
	Language i18n.Language `json:"language"`
	Channel  ChatChannel   `json:"channel"`
	Message  string        `json:"message"`
}

// FriendRequestAccepted notifies a requester that their outgoing request
// became a friendship.
type FriendRequestAccepted struct {
	Friend Friend `json:"friend"`
}
