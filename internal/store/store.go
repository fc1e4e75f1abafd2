// Package store persists player accounts and the relationship graph. Two
// implementations exist: an in-memory store for the reference deployment and
// tests, and a GORM-backed store for Postgres and SQLite.
package store

import (
	"context"
	"errors"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
)

// Sentinel errors shared by all implementations. Callers match with
// errors.Is.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
)

// Registration is the validated payload captured at sign-up. The password
// arrives here already hashed.
type Registration struct {
	AccountName  string
	DisplayName  string
	Email        string
	Language     i18n.Language
	PasswordHash string
}

// Store is the persistence boundary for the social graph.
//
// Account-name and email lookups are case-insensitive. Friendships are
// symmetric: AddFriend and RemoveFriend affect both directions in one call.
// Friend requests and blocks are directed, at most one per ordered pair, and
// the write operations are idempotent. List results are sorted by id so
// responses are stable.
type Store interface {
	UserExists(ctx context.Context, id string) (bool, error)
	InsertUser(ctx context.Context, reg Registration) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByAccountName(ctx context.Context, accountName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	Friends(ctx context.Context, userID string) ([]string, error)

	InsertFriendRequest(ctx context.Context, senderID, recipientID string) error
	RemoveFriendRequest(ctx context.Context, senderID, recipientID string) error
	IncomingFriendRequests(ctx context.Context, userID string) ([]string, error)
	OutgoingFriendRequests(ctx context.Context, userID string) ([]string, error)

	InsertBlock(ctx context.Context, blockerID, blockedID string) error
	RemoveBlock(ctx context.Context, blockerID, blockedID string) error
	BlockedUsers(ctx context.Context, blockerID string) ([]string, error)
	IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
}
