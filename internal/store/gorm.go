package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warhorse/internal/models"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique-constraint hits.
const pgUniqueViolation = "23505"

// GormStore is the database-backed Store. It works against Postgres and
// SQLite through the same GORM handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, translateError(err)
}

func (s *GormStore) InsertUser(ctx context.Context, reg Registration) (string, error) {
	user := models.User{
		ID:               uuid.NewString(),
		AccountName:      reg.AccountName,
		AccountNameLower: strings.ToLower(reg.AccountName),
		DisplayName:      reg.DisplayName,
		DisplayNameLower: strings.ToLower(reg.DisplayName),
		Email:            strings.ToLower(reg.Email),
		Language:         reg.Language,
		PasswordHash:     reg.PasswordHash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return "", translateError(err)
	}
	return user.ID, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByAccountName(ctx context.Context, accountName string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("account_name_lower = ?", strings.ToLower(accountName)).
		First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) AddFriend(ctx context.Context, userID, friendID string) error {
	rows := []models.Friendship{
		{UserID: userID, FriendID: friendID},
		{UserID: friendID, FriendID: userID},
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	return translateError(err)
}

func (s *GormStore) RemoveFriend(ctx context.Context, userID, friendID string) error {
	err := s.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		Delete(&models.Friendship{}).Error
	return translateError(err)
}

func (s *GormStore) Friends(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_id = ?", userID).
		Order("friend_id").
		Pluck("friend_id", &ids).Error
	return ids, translateError(err)
}

func (s *GormStore) InsertFriendRequest(ctx context.Context, senderID, recipientID string) error {
	row := models.FriendRequest{SenderID: senderID, RecipientID: recipientID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	return translateError(err)
}

func (s *GormStore) RemoveFriendRequest(ctx context.Context, senderID, recipientID string) error {
	err := s.db.WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		Delete(&models.FriendRequest{}).Error
	return translateError(err)
}

func (s *GormStore) IncomingFriendRequests(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("recipient_id = ?", userID).
		Order("sender_id").
		Pluck("sender_id", &ids).Error
	return ids, translateError(err)
}

func (s *GormStore) OutgoingFriendRequests(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("sender_id = ?", userID).
		Order("recipient_id").
		Pluck("recipient_id", &ids).Error
	return ids, translateError(err)
}

func (s *GormStore) InsertBlock(ctx context.Context, blockerID, blockedID string) error {
	row := models.Block{BlockerID: blockerID, BlockedID: blockedID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	return translateError(err)
}

func (s *GormStore) RemoveBlock(ctx context.Context, blockerID, blockedID string) error {
	err := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
	return translateError(err)
}

func (s *GormStore) BlockedUsers(ctx context.Context, blockerID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Block{}).
		Where("blocker_id = ?", blockerID).
		Order("blocked_id").
		Pluck("blocked_id", &ids).Error
	return ids, translateError(err)
}

func (s *GormStore) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, translateError(err)
}

// translateError folds driver-specific failures into the store sentinels.
// Unique violations are detected for Postgres by SQLSTATE and for SQLite by
// message, since the sqlite driver error type is not exported through GORM.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}
