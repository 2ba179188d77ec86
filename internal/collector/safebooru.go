package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
)

const safebooruImageHost = "https://safebooru.org"

// Safebooru picks a random post tagged nakano_miku from the booru JSON API.
type Safebooru struct {
	fetcher *httpFetcher
	rng     *lockedRand
}

type safebooruPost struct {
	ID        flexString `json:"id"`
	Directory flexString `json:"directory"`
	Image     string     `json:"image"`
}

// flexString accepts both JSON strings and numbers. The API has returned
// directory and id in either form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

func NewSafebooru(rng *rand.Rand, opts ...Option) *Safebooru {
	return &Safebooru{
		fetcher: newFetcher("https://safebooru.org", time.Second, opts),
		rng:     newLockedRand(rng),
	}
}

func (s *Safebooru) Name() string { return "safebooru" }

func (s *Safebooru) FetchOne(ctx context.Context) (*domain.ContentRecord, error) {
	q := url.Values{}
	q.Set("page", "dapi")
	q.Set("s", "post")
	q.Set("q", "index")
	q.Set("json", "1")
	q.Set("tags", "nakano_miku")
	q.Set("limit", strconv.Itoa(100))

	body, err := s.fetcher.get(ctx, "/index.php?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("safebooru query: %w", err)
	}
	defer body.Close()

	var posts []safebooruPost
	if err := json.NewDecoder(body).Decode(&posts); err != nil {
		// an empty result set comes back as an empty body
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding safebooru posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	post := posts[s.rng.Intn(len(posts))]
	if post.Directory == "" || post.Image == "" {
		return nil, nil
	}

	return &domain.ContentRecord{
		ImageURL: fmt.Sprintf("%s/images/%s/%s", safebooruImageHost, post.Directory, post.Image),
		Source:   fmt.Sprintf("Safebooru - Post #%s", post.ID),
		ID:       "safebooru:" + string(post.ID),
	}, nil
}
