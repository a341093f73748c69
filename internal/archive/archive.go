// Package archive persists completed generations to the local filesystem as
// paired .json and .md files under week-bucketed directories.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/jmcallister/draftforge/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	// minContentLength is the character threshold below which a completed
	// generation is not worth archiving.
	minContentLength = 50

	// wordsPerMinute is the reading speed used for the reading time estimate.
	wordsPerMinute = 200

	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer saves generated content under a base directory. Safe for concurrent
// use as long as request ids are unique, which they are by construction.
type Writer struct {
	baseDir string
	logger  *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewWriter(baseDir string, logger *slog.Logger) *Writer {
	return &Writer{
		baseDir: baseDir,
		logger:  logger.With("component", "archive"),
		now:     time.Now,
	}
}

// Save writes a completed generation to disk and returns the record describing
// where it landed. Content shorter than the minimum threshold is skipped and
// Save returns (nil, nil).
func (w *Writer) Save(req *models.GenerationRequest, content string) (*models.SavedContent, error) {
	if len(content) <= minContentLength {
		w.logger.Debug("content below archive threshold, skipping",
			"request_id", req.RequestID, "length", len(content))
		return nil, nil
	}

	now := w.now().UTC()
	year, week := now.ISOWeek()
	dir := filepath.Join(w.baseDir, fmt.Sprintf("week_%d_%d", year, week))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	slug := contentSlug(req.Topic, now, req.RequestID)
	wordCount := len(strings.Fields(content))

	rec := &models.SavedContent{
		ContentID:      slug,
		Title:          req.Topic,
		Body:           content,
		Template:       req.Template,
		StyleProfile:   req.StyleProfile,
		Topic:          req.Topic,
		WordCount:      wordCount,
		ReadingTimeMin: readingTime(wordCount),
		CreatedAt:      now,
		JSONPath:       filepath.Join(dir, slug+".json"),
		MarkdownPath:   filepath.Join(dir, slug+".md"),
	}

	if err := w.writeJSON(rec); err != nil {
		return nil, err
	}
	if err := w.writeMarkdown(rec); err != nil {
		return nil, err
	}

	w.logger.Info("archived generated content",
		"request_id", req.RequestID, "content_id", slug, "word_count", wordCount)
	return rec, nil
}

func (w *Writer) writeJSON(rec *models.SavedContent) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive json: %w", err)
	}
	if err := os.WriteFile(rec.JSONPath, data, filePerm); err != nil {
		return fmt.Errorf("write archive json: %w", err)
	}
	return nil
}

func (w *Writer) writeMarkdown(rec *models.SavedContent) error {
	meta, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.WriteString(rec.Body)
	b.WriteString("\n")

	if err := os.WriteFile(rec.MarkdownPath, []byte(b.String()), filePerm); err != nil {
		return fmt.Errorf("write archive markdown: %w", err)
	}
	return nil
}

// contentSlug builds the file key from the topic, the date, and a short
// request-id fragment so collisions within a week are impossible.
func contentSlug(topic string, now time.Time, requestID string) string {
	frag := requestID
	frag = strings.ReplaceAll(frag, "-", "")
	if len(frag) > 8 {
		frag = frag[:8]
	}
	return fmt.Sprintf("%s_%s_%s", slugify(topic), now.Format("2006-01-02"), frag)
}

// slugify lowercases the input and collapses non-alphanumeric runs to single
// underscores.
func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func readingTime(wordCount int) int {
	min := (wordCount + wordsPerMinute - 1) / wordsPerMinute
	if min < 1 {
		min = 1
	}
	return min
}
