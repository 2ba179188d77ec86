package history

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/qepting91/mikubot/internal/domain"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// NormalizeURL reduces a URL to scheme, host and path, lowercased, with
// query, fragment and one trailing slash removed. Input that does not parse
// is returned unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	b.WriteString(u.Path)

	return strings.ToLower(strings.TrimSuffix(b.String(), "/"))
}

func cleanCaption(caption string) string {
	return strings.ToLower(nonWord.ReplaceAllString(caption, ""))
}

// Fingerprint returns a digest over the normalized URL, cleaned caption and
// source of a record, or "" when the record carries none of them.
func Fingerprint(rec domain.ContentRecord) string {
	var fields []string
	if rec.ImageURL != "" {
		fields = append(fields, "url:"+NormalizeURL(rec.ImageURL))
	}
	if rec.Caption != "" {
		fields = append(fields, "caption:"+cleanCaption(rec.Caption))
	}
	if rec.Source != "" {
		fields = append(fields, "source:"+rec.Source)
	}
	if len(fields) == 0 {
		return ""
	}

	return fmt.Sprintf("%x", md5.Sum([]byte(strings.Join(fields, "|"))))
}
