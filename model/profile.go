package model

import "time"

// User is a registered account. Exactly two accounts are expected per
// working instance, but that pairing is operator policy, not enforced here.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public identity of a user: one profile per account.
type Profile struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex" json:"userId"`
	DisplayName string    `gorm:"size:100;not null" json:"displayName"`
	AvatarURL   *string   `gorm:"size:767" json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
