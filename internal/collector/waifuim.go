package collector

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
)

// WaifuIm queries the waifu.im tag search for high resolution Miku art.
type WaifuIm struct {
	fetcher *httpFetcher
	rng     *lockedRand
}

type waifuImResponse struct {
	Images []struct {
		ImageID int     `json:"image_id"`
		URL     string  `json:"url"`
		Source  *string `json:"source"`
	} `json:"images"`
}

func NewWaifuIm(rng *rand.Rand, opts ...Option) *WaifuIm {
	return &WaifuIm{
		fetcher: newFetcher("https://api.waifu.im", time.Second, opts),
		rng:     newLockedRand(rng),
	}
}

func (w *WaifuIm) Name() string { return "waifu.im" }

func (w *WaifuIm) FetchOne(ctx context.Context) (*domain.ContentRecord, error) {
	q := url.Values{}
	q.Set("included_tags", "miku_nakano")
	q.Set("height", ">=1000")
	q.Set("many", "true")

	var resp waifuImResponse
	if err := w.fetcher.getJSON(ctx, "/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("waifu.im search: %w", err)
	}
	if len(resp.Images) == 0 {
		return nil, nil
	}

	img := resp.Images[w.rng.Intn(len(resp.Images))]
	if img.URL == "" {
		return nil, nil
	}

	origin := "Unknown"
	if img.Source != nil && *img.Source != "" {
		origin = *img.Source
	}

	return &domain.ContentRecord{
		ImageURL: img.URL,
		Source:   "waifu.im - " + origin,
		ID:       fmt.Sprintf("waifuim:%d", img.ImageID),
	}, nil
}
