// Package protocol defines the socket event names and payload types shared
// with game clients. Every frame is an envelope holding one event name and
// one JSON payload.
package protocol

// Client-to-server events.
const (
	EventUserLogin           = "/user/login"
	EventUserRegister        = "/user/register"
	EventUserLogout          = "/user/logout"
	EventUserBlock           = "/user/block"
	EventUserUnblock         = "/user/unblock"
	EventFriendRequest       = "/friend/request"
	EventFriendRequestAccept = "/friend/request/accept"
	EventFriendRequestReject = "/friend/request/reject"
	EventFriendRemove        = "/friend/remove"
	EventChatSend            = "/chat/send"
)

// Server-to-client events. EventUserLogin doubles as the login/registration
// acknowledgement.
const (
	EventHello                 = "hello"
	EventFriendsReceive        = "/friends/receive"
	EventFriendRequestsReceive = "/friend_requests/receive"
	EventBlockedUsersReceive   = "/blocked_users/receive"
	EventFriendRequestAccepted = "/friend_request/accepted"
	EventChatReceive           = "/chat/receive"
	EventError                 = "/error"
)
