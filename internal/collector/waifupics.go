package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
)

// WaifuPics returns a generic SFW anime image. It cannot search by
// character, so it only serves as a fallback.
type WaifuPics struct {
	fetcher *httpFetcher
}

func NewWaifuPics(opts ...Option) *WaifuPics {
	return &WaifuPics{fetcher: newFetcher("https://api.waifu.pics", time.Second, opts)}
}

func (w *WaifuPics) Name() string { return "waifu.pics" }

func (w *WaifuPics) FetchOne(ctx context.Context) (*domain.ContentRecord, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := w.fetcher.getJSON(ctx, "/sfw/waifu", &resp); err != nil {
		return nil, fmt.Errorf("waifu.pics: %w", err)
	}
	if resp.URL == "" {
		return nil, nil
	}
	return &domain.ContentRecord{ImageURL: resp.URL, Source: "waifu.pics"}, nil
}
