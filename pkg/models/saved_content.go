package models

import "time"

// SavedContent is the on-disk rendering of a completed generation: a paired
// .json (full metadata + content) and .md (YAML front matter + raw content)
// file under a week-bucketed directory. At most one record is produced per
// successful generation with non-trivial content.
type SavedContent struct {
	ContentID      string    `json:"content_id"      yaml:"content_id"`
	Title          string    `json:"title"           yaml:"title"`
	Body           string    `json:"body"            yaml:"-"`
	Template       string    `json:"template"        yaml:"template"`
	StyleProfile   string    `json:"style_profile"   yaml:"style_profile"`
	Topic          string    `json:"topic"           yaml:"topic"`
	WordCount      int       `json:"word_count"      yaml:"word_count"`
	ReadingTimeMin int       `json:"reading_time_min" yaml:"reading_time_min"`
	CreatedAt      time.Time `json:"created_at"      yaml:"created_at"`
	JSONPath       string    `json:"-"               yaml:"-"`
	MarkdownPath   string    `json:"-"               yaml:"-"`
}
