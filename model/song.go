package model

import "time"

// Song is a track in the shared library, owned by its uploader.
type Song struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	AudioURL   string    `gorm:"size:767;not null" json:"audioUrl"`
	CoverURL   *string   `gorm:"size:767" json:"coverUrl"`
	UploadedBy int64     `gorm:"index;not null" json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SongWithStats is a Song enriched with per-person play counts and the
// current profile's favorite flag. Derived, never persisted.
type SongWithStats struct {
	Song
	MyPlays      int      `json:"myPlays"`
	PartnerPlays int      `json:"partnerPlays"`
	TotalPlays   int      `json:"totalPlays"`
	IsFavorite   bool     `json:"isFavorite"`
	Uploader     *Profile `json:"uploader,omitempty"`
}
