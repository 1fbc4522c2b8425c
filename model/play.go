package model

import "time"

// Play records that a profile finished listening to a song once.
// Append-only; never mutated or deleted except by song cascade.
type Play struct {
	ID       int64     `gorm:"primaryKey" json:"id"`
	SongID   int64     `gorm:"index;not null" json:"songId"`
	PlayedBy int64     `gorm:"index;not null" json:"playedBy"`
	PlayedAt time.Time `gorm:"index;not null" json:"playedAt"`
}
