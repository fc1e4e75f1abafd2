package models

import (
	"time"

	"warhorse/internal/i18n"
)

// User is a registered player account.
//
// AccountNameLower and Email carry the uniqueness constraints; the cased
// account and display names are what other players see. Passwords are
// stored only as bcrypt hashes.
type User struct {
	ID               string        `gorm:"primaryKey;size:36" json:"id"`
	AccountName      string        `gorm:"size:20;not null" json:"account_name"`
	AccountNameLower string        `gorm:"size:20;not null;uniqueIndex" json:"-"`
	DisplayName      string        `gorm:"size:20;not null" json:"display_name"`
	DisplayNameLower string        `gorm:"size:20;not null;index" json:"-"`
	Email            string        `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Language         i18n.Language `gorm:"size:16;not null" json:"language"`
	PasswordHash     string        `gorm:"size:72;not null" json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
