package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
)

// PublishedPost is one line of the post log.
type PublishedPost struct {
	Job       string    `json:"job"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	Source    string    `json:"source"`
	ID        string    `json:"id,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
	Channel   string    `json:"channel"`
	DryRun    bool      `json:"dry_run,omitempty"`
	PostedAt  time.Time `json:"posted_at"`
}

func NewPublishedPost(job, channel string, rec domain.ContentRecord, at time.Time) PublishedPost {
	return PublishedPost{
		Job:       job,
		ImageURL:  rec.ImageURL,
		Caption:   rec.Caption,
		Source:    rec.Source,
		ID:        rec.ID,
		Permalink: rec.Permalink,
		Channel:   channel,
		PostedAt:  at.UTC(),
	}
}

// WriterService owns the post log file. Only its goroutine writes to it.
type WriterService struct {
	FilePath string
	Logger   *slog.Logger
}

// Start appends every post from input as NDJSON until input is closed.
func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan PublishedPost) {
	defer wg.Done()

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(w.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Creating post log directory failed", "path", w.FilePath, "err", err)
		}
	}

	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("Opening post log failed", "path", w.FilePath, "err", err)
		// keep draining so senders never block
		for range input {
		}
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for post := range input {
		if err := enc.Encode(post); err != nil {
			logger.Error("Writing post log failed", "path", w.FilePath, "err", err)
		}
	}
}

// LoadPosts reads the post log. A missing file is an empty log; lines that
// do not parse are skipped.
func LoadPosts(path string) ([]PublishedPost, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening post log: %w", err)
	}
	defer f.Close()

	var posts []PublishedPost
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var p PublishedPost
		if err := json.Unmarshal(scanner.Bytes(), &p); err == nil {
			posts = append(posts, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return posts, fmt.Errorf("reading post log: %w", err)
	}
	return posts, nil
}
