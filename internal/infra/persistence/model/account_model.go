package model

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel mirrors the 'accounts' table. IDs are generated by the application (UUIDv7).
type AccountModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex:accounts_email_key;not null"`
	Username     string    `gorm:"type:varchar(100);not null;default:''"`
	FirstName    string    `gorm:"type:varchar(100);not null;default:''"`
	LastName     string    `gorm:"type:varchar(100);not null;default:''"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Tokens []AccountTokenModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

// AccountTokenModel mirrors the 'account_tokens' table. Each row is one active session.
type AccountTokenModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID  `gorm:"type:uuid;not null;index"`
	TokenHash string     `gorm:"type:char(64);uniqueIndex;not null"`
	IssuedAt  time.Time  `gorm:"not null"`
	ExpiresAt *time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountTokenModel) TableName() string {
	return "account_tokens"
}
