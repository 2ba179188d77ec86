package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/qepting91/mikubot/internal/domain"
	"golang.org/x/net/html"
)

// RSSClient reads the .rss listings. It needs no credentials and has no
// score data, so Score is always zero.
type RSSClient struct {
	fetcher *httpFetcher
	parser  *gofeed.Parser
}

func NewRSSClient(opts ...Option) *RSSClient {
	return &RSSClient{
		fetcher: newFetcher(redditBaseURL, 2*time.Second, opts),
		parser:  gofeed.NewParser(),
	}
}

func (rc *RSSClient) FetchNewPosts(ctx context.Context, sub string, limit int) ([]domain.Post, error) {
	return rc.listing(ctx, sub, fmt.Sprintf("/r/%s/new/.rss?limit=%d", url.PathEscape(sub), limit))
}

func (rc *RSSClient) FetchHotPosts(ctx context.Context, sub string, limit int) ([]domain.Post, error) {
	return rc.listing(ctx, sub, fmt.Sprintf("/r/%s/hot/.rss?limit=%d", url.PathEscape(sub), limit))
}

func (rc *RSSClient) FetchTopPosts(ctx context.Context, sub, period string, limit int) ([]domain.Post, error) {
	return rc.listing(ctx, sub, fmt.Sprintf("/r/%s/top/.rss?t=%s&limit=%d", url.PathEscape(sub), url.QueryEscape(period), limit))
}

func (rc *RSSClient) listing(ctx context.Context, sub, path string) ([]domain.Post, error) {
	body, err := rc.fetcher.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reddit rss listing: %w", err)
	}
	defer body.Close()

	feed, err := rc.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing reddit rss: %w", err)
	}

	posts := make([]domain.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		posts = append(posts, postFromItem(sub, item))
	}
	return posts, nil
}

func postFromItem(sub string, item *gofeed.Item) domain.Post {
	post := domain.Post{
		ID:        strings.TrimPrefix(item.GUID, "t3_"),
		Title:     item.Title,
		Subreddit: sub,
		URL:       item.Link,
		Permalink: item.Link,
	}

	if link := submittedLink(item.Content); link != "" {
		post.URL = link
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		post.Author = strings.TrimPrefix(item.Authors[0].Name, "/u/")
	}

	switch {
	case item.PublishedParsed != nil:
		post.Created = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		post.Created = *item.UpdatedParsed
	}
	return post
}

// submittedLink returns the href of the anchor labelled [link], which is
// where Reddit puts the submitted URL in the item body.
func submittedLink(content string) string {
	if content == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var href string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if href != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && nodeText(n) == "[link]" {
			href = strings.TrimSpace(attrVal(n, "href"))
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return href
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return strings.TrimSpace(buf.String())
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
