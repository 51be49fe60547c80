// Package models contains data structures for the application's domain models.
package models

import "time"

// Field length limits shared by validation and the schema.
const (
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MaxEmailLength    = 254
)

// User is a registered account. Email is the login identifier.
type User struct {
	ID        uint       `gorm:"primaryKey"`
	Username  string     `gorm:"size:150;uniqueIndex;not null"`
	Email     string     `gorm:"size:254;uniqueIndex;not null"`
	FirstName string     `gorm:"size:150;not null"`
	LastName  string     `gorm:"size:150;not null"`
	Password  string     `gorm:"not null"`
	Avatar    string     `gorm:"size:255"`
	Bio       *string    `gorm:"type:text"`
	BirthDate *time.Time `gorm:"type:date"`
	IsAdmin   bool       `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// Subscription is a follow edge from User (the subscriber) to Author.
type Subscription struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_subscription_pair;check:chk_subscription_not_self,user_id <> author_id"`
	AuthorID  uint `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	CreatedAt time.Time

	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
