package remote

import (
	"strings"

	"shiori/internal/cache"
)

// userRate is one list row as the API returns it.
type userRate struct {
	ID        int64      `json:"id"`
	Score     int        `json:"score"`
	Status    string     `json:"status"`
	Episodes  int        `json:"episodes"`
	Chapters  int        `json:"chapters"`
	Rewatches int        `json:"rewatches"`
	Anime     *mediaInfo `json:"anime"`
	Manga     *mediaInfo `json:"manga"`
}

type mediaInfo struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Russian  string   `json:"russian"`
	English  []string `json:"english"`
	Japanese []string `json:"japanese"`
	Synonyms []string `json:"synonyms"`
	Episodes int      `json:"episodes"`
	Chapters int      `json:"chapters"`
}

// UpdatePayload carries the optional fields of a user-rate PATCH. Nil fields
// are omitted.
type UpdatePayload struct {
	Progress  *int    `json:"-"`
	Status    *string `json:"-"`
	Score     *int    `json:"-"`
	Rewatches *int    `json:"-"`
}

// tokenResponse is the OAuth token endpoint reply.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// toEntry converts a user rate to a cache entry. The primary title comes
// first; localized names and synonyms follow for matching.
func (r userRate) toEntry(kind cache.MediaKind) *cache.Entry {
	media := r.Anime
	if kind == cache.KindManga {
		media = r.Manga
	}

	entry := &cache.Entry{
		RemoteID:     r.ID,
		MediaKind:    kind,
		Status:       cache.Status(r.Status),
		Score:        r.Score,
		RewatchCount: r.Rewatches,
	}
	if kind == cache.KindManga {
		entry.Progress = r.Chapters
	} else {
		entry.Progress = r.Episodes
	}
	if !cache.ValidStatus(entry.Status) {
		entry.Status = cache.StatusPlanned
	}

	if media != nil {
		titles := make([]string, 0, 4)
		add := func(title string) {
			title = strings.TrimSpace(title)
			if title == "" {
				return
			}
			for _, existing := range titles {
				if strings.EqualFold(existing, title) {
					return
				}
			}
			titles = append(titles, title)
		}
		add(media.Name)
		add(media.Russian)
		for _, t := range media.English {
			add(t)
		}
		for _, t := range media.Japanese {
			add(t)
		}
		for _, t := range media.Synonyms {
			add(t)
		}
		entry.Titles = titles
		if kind == cache.KindManga {
			entry.TotalUnits = media.Chapters
		} else {
			entry.TotalUnits = media.Episodes
		}
	}
	return entry
}

// ratePatch is the wire form of an update request.
type ratePatch struct {
	UserRate map[string]any `json:"user_rate"`
}

func (p UpdatePayload) patch(kind cache.MediaKind) ratePatch {
	fields := make(map[string]any, 4)
	if p.Progress != nil {
		if kind == cache.KindManga {
			fields["chapters"] = *p.Progress
		} else {
			fields["episodes"] = *p.Progress
		}
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.Score != nil {
		fields["score"] = *p.Score
	}
	if p.Rewatches != nil {
		fields["rewatches"] = *p.Rewatches
	}
	return ratePatch{UserRate: fields}
}
