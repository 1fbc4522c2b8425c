package model

// WeeklyTopSong is one ranked entry within the trailing 7-day window.
type WeeklyTopSong struct {
	Song     Song     `json:"song"`
	Plays    int      `json:"plays"`
	Uploader *Profile `json:"uploader,omitempty"`
}

// WeeklyStats is the weekly highlights block: each person's top songs
// plus the songs both people have favorited.
type WeeklyStats struct {
	MyTopSongs      []WeeklyTopSong `json:"myTopSongs"`
	PartnerTopSongs []WeeklyTopSong `json:"partnerTopSongs"`
	SharedFavorites []Song          `json:"sharedFavorites"`
}
