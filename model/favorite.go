package model

import "time"

// Favorite is a membership fact: a row means the profile has favorited
// the song. At most one row per (song_id, user_id) pair.
type Favorite struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SongID    int64     `gorm:"not null;uniqueIndex:uq_song_user" json:"songId"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_song_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
