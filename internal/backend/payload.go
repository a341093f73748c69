package backend

import (
	"strings"

	"github.com/jmcallister/draftforge/pkg/models"
)

// Payload is a decoded backend response. The backend's schema is not
// contractually fixed: job fields may sit at the top level or under a
// "data" object, so every accessor probes both, first non-empty match wins.
type Payload map[string]any

// idFields are probed in order when resolving the backend's generation id.
var idFields = []string{"generation_id", "request_id", "id", "job_id"}

// rawBodyKey holds a bare-string response body verbatim. Whether a bare
// string counts as content is an extraction rule, not a transport one, so
// the string is never promoted to a named field here.
const rawBodyKey = "_raw_body"

// ExtractionValue returns the value content extraction should run against:
// the verbatim bare-string body when the response had no object shape,
// otherwise the payload map itself.
func (p Payload) ExtractionValue() any {
	if s, ok := p[rawBodyKey].(string); ok {
		return s
	}
	return map[string]any(p)
}

// Status returns the job status, lowercased, or models.StatusUnknown when
// neither the top level nor data.* carries a non-empty status.
func (p Payload) Status() string {
	if s := p.stringField("status"); s != "" {
		return strings.ToLower(s)
	}
	return models.StatusUnknown
}

// GenerationID returns the backend's own identifier for this job, if any.
func (p Payload) GenerationID() string {
	for _, f := range idFields {
		if s := p.stringField(f); s != "" {
			return s
		}
	}
	return ""
}

// Progress returns the reported completion percentage, clamped to 0-100.
func (p Payload) Progress() int {
	v, ok := p.field("progress")
	if !ok {
		return 0
	}
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case int:
		n = t
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// EstimatedCompletion returns the backend's completion estimate, if present.
func (p Payload) EstimatedCompletion() string {
	return p.stringField("estimated_completion")
}

// Metadata returns the backend's metadata object, or nil.
func (p Payload) Metadata() map[string]any {
	if v, ok := p.field("metadata"); ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// field looks up a key at the top level, then under "data".
func (p Payload) field(key string) (any, bool) {
	if v, ok := p[key]; ok && v != nil {
		return v, true
	}
	if data, ok := p["data"].(map[string]any); ok {
		if v, ok := data[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringField is field restricted to non-blank strings. A blank or non-string
// top-level value does not shadow a usable data.* value.
func (p Payload) stringField(key string) string {
	if s, ok := p[key].(string); ok {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed
		}
	}
	if data, ok := p["data"].(map[string]any); ok {
		if s, ok := data[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// Terminal reports whether the status is a terminal value.
func (p Payload) Terminal() bool {
	switch p.Status() {
	case models.StatusCompleted, models.StatusFailed:
		return true
	}
	return false
}
