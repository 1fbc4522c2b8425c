package stats

import (
	"sort"
	"time"

	"duetfm/model"
)

// Window is the trailing range rankings are computed over. It is relative
// to the moment of computation, not calendar-aligned.
const Window = 7 * 24 * time.Hour

// Compute derives the weekly highlights for a profile/partner pairing from
// already fetched collections. Plays outside the window are ignored even if
// the caller fetched a wider range. Ties rank by ascending song ID so the
// output is deterministic. Entries whose song has been deleted (orphaned
// play rows) are dropped.
func Compute(me, partner *model.Profile, plays []*model.Play, songs []*model.Song, profiles []*model.Profile, favorites []*model.Favorite, now time.Time) *model.WeeklyStats {
	cutoff := now.Add(-Window)

	myCounts := make(map[int64]int)
	partnerCounts := make(map[int64]int)
	for _, play := range plays {
		if play.PlayedAt.Before(cutoff) {
			continue
		}
		if play.PlayedBy == me.ID {
			myCounts[play.SongID]++
		} else if partner != nil && play.PlayedBy == partner.ID {
			partnerCounts[play.SongID]++
		}
	}

	songByID := make(map[int64]*model.Song, len(songs))
	for _, song := range songs {
		songByID[song.ID] = song
	}
	profileByID := make(map[int64]*model.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p
	}

	return &model.WeeklyStats{
		MyTopSongs:      topSongs(myCounts, songByID, profileByID),
		PartnerTopSongs: topSongs(partnerCounts, songByID, profileByID),
		SharedFavorites: sharedFavorites(me, partner, favorites, songs),
	}
}

const topN = 5

func topSongs(counts map[int64]int, songByID map[int64]*model.Song, profileByID map[int64]*model.Profile) []model.WeeklyTopSong {
	type ranked struct {
		songID int64
		plays  int
	}
	order := make([]ranked, 0, len(counts))
	for songID, plays := range counts {
		order = append(order, ranked{songID: songID, plays: plays})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].plays != order[j].plays {
			return order[i].plays > order[j].plays
		}
		return order[i].songID < order[j].songID
	})

	top := make([]model.WeeklyTopSong, 0, topN)
	for _, entry := range order {
		if len(top) == topN {
			break
		}
		song, ok := songByID[entry.songID]
		if !ok {
			continue
		}
		top = append(top, model.WeeklyTopSong{
			Song:     *song,
			Plays:    entry.plays,
			Uploader: profileByID[song.UploadedBy],
		})
	}
	return top
}

// sharedFavorites is the intersection of both people's favorite sets,
// mapped back to songs in song-fetch order. Empty without a partner.
func sharedFavorites(me, partner *model.Profile, favorites []*model.Favorite, songs []*model.Song) []model.Song {
	shared := make([]model.Song, 0)
	if partner == nil {
		return shared
	}

	mine := make(map[int64]bool)
	theirs := make(map[int64]bool)
	for _, fav := range favorites {
		switch fav.UserID {
		case me.ID:
			mine[fav.SongID] = true
		case partner.ID:
			theirs[fav.SongID] = true
		}
	}

	for _, song := range songs {
		if mine[song.ID] && theirs[song.ID] {
			shared = append(shared, *song)
		}
	}
	return shared
}
