package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"shiori/internal/cache"
	"shiori/internal/logging"
)

const pageLimit = 100

// ListEntries fetches the user's full list of the given kind, walking pages
// until a short page signals the end.
func (c *Client) ListEntries(ctx context.Context, kind cache.MediaKind) ([]*cache.Entry, error) {
	endpoint := fmt.Sprintf("/users/%d/anime_rates", c.userID)
	if kind == cache.KindManga {
		endpoint = fmt.Sprintf("/users/%d/manga_rates", c.userID)
	}

	var entries []*cache.Entry
	for page := 1; ; page++ {
		params := url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(pageLimit)},
		}
		var rates []userRate
		if err := c.do(ctx, http.MethodGet, endpoint, params, nil, &rates); err != nil {
			return nil, err
		}
		for _, rate := range rates {
			entries = append(entries, rate.toEntry(kind))
		}
		if len(rates) < pageLimit {
			break
		}
	}
	c.logger.Debug("list fetched",
		logging.String("kind", string(kind)),
		logging.Int("entries", len(entries)),
	)
	return entries, nil
}

// UpdateEntry patches one user rate and returns the remote's view of it.
func (c *Client) UpdateEntry(ctx context.Context, kind cache.MediaKind, rateID int64, payload UpdatePayload) (*cache.Entry, error) {
	var rate userRate
	endpoint := fmt.Sprintf("/user_rates/%d", rateID)
	if err := c.do(ctx, http.MethodPatch, endpoint, nil, payload.patch(kind), &rate); err != nil {
		return nil, err
	}
	return rate.toEntry(kind), nil
}

// AddEntry puts a title on the user's list with the given status.
func (c *Client) AddEntry(ctx context.Context, kind cache.MediaKind, targetID int64, status cache.Status) (*cache.Entry, error) {
	targetType := "Anime"
	if kind == cache.KindManga {
		targetType = "Manga"
	}
	body := map[string]any{
		"user_rate": map[string]any{
			"user_id":     c.userID,
			"target_id":   targetID,
			"target_type": targetType,
			"status":      string(status),
		},
	}
	var rate userRate
	if err := c.do(ctx, http.MethodPost, "/user_rates", nil, body, &rate); err != nil {
		return nil, err
	}
	return rate.toEntry(kind), nil
}

// DeleteEntry removes a user rate.
func (c *Client) DeleteEntry(ctx context.Context, rateID int64) error {
	endpoint := fmt.Sprintf("/user_rates/%d", rateID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// User identifies the authenticated account.
type User struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// WhoAmI returns the authenticated user, which doubles as a credential
// check.
func (c *Client) WhoAmI(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/whoami", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
