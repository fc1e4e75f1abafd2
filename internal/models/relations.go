package models

import "time"

// Friendship is one direction of a friend edge. The relationship is kept
// symmetric by writing both (user, friend) and (friend, user) rows in the
// same operation.
type Friendship struct {
	UserID    string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	FriendID  string    `gorm:"primaryKey;size:36" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendRequest is a pending, directed invitation to become friends.
// At most one row exists per ordered (sender, recipient) pair.
type FriendRequest struct {
	SenderID    string    `gorm:"primaryKey;size:36" json:"sender_id"`
	RecipientID string    `gorm:"primaryKey;size:36;index" json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Block is a directed block edge. Blocks are independent per direction;
// (a blocks b) says nothing about (b blocks a).
type Block struct {
	BlockerID string    `gorm:"primaryKey;size:36" json:"blocker_id"`
	BlockedID string    `gorm:"primaryKey;size:36;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}
