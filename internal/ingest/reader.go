package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/qepting91/mikubot/internal/domain"
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

// DefaultTargets are the feeds crawled when no targets file is configured.
// Only the fan-art subreddits count every image as on topic.
func DefaultTargets() []domain.Target {
	return []domain.Target{
		{Subreddit: "MikuNakano", AlwaysTopical: true},
		{Subreddit: "Nakano_Miku", AlwaysTopical: true},
		{Subreddit: "churchofmiku", AlwaysTopical: true},
		{Subreddit: "5ToubunNoHanayome", AlwaysTopical: false},
	}
}

func DefaultKeywords() []string {
	return []string{"miku", "nakano", "third sister", "headphones"}
}

// LoadTargets reads "subreddit,always_topical" rows. Bad rows are skipped.
// An empty path yields the defaults.
func LoadTargets(path string) ([]domain.Target, error) {
	if path == "" {
		return DefaultTargets(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening targets: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	var targets []domain.Target
	line := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue // header
		}

		sub := strings.TrimPrefix(strings.TrimSpace(record[0]), "r/")
		if !subNameRegex.MatchString(sub) {
			continue
		}

		var always bool
		if len(record) > 1 {
			always, _ = strconv.ParseBool(strings.TrimSpace(record[1]))
		}

		targets = append(targets, domain.Target{
			Subreddit:     sub,
			AlwaysTopical: always,
		})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid subreddits in %s", path)
	}
	return targets, nil
}

// LoadKeywords reads one keyword per row after a header, lowercased.
func LoadKeywords(path string) ([]string, error) {
	if path == "" {
		return DefaultKeywords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keywords: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	var kws []string
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		if line > 0 && len(rec) > 0 {
			if kw := strings.ToLower(strings.TrimSpace(rec[0])); kw != "" {
				kws = append(kws, kw)
			}
		}
		line++
	}
	return kws, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
