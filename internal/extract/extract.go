// Package extract locates generated text inside backend responses of
// unpredictable shape. The backend's output schema varies across pipeline
// versions and agents (writer, editor, formatter), so extraction is a
// prioritized list of lookups followed by a bounded generic tree search
// rather than a fixed contract.
package extract

import (
	"sort"
	"strings"
)

// contentFields is the ordered candidate list for direct lookups.
// Earlier entries win; a candidate qualifies only if it is a non-blank string.
var contentFields = []string{
	"content",
	"formatted_content",
	"edited_content",
	"draft_content",
	"draft",
	"result",
	"final_content",
	"output",
	"formatted_article",
	"edited_draft",
}

// stateContainers are nested objects the candidate lookup is repeated
// against, in order, when the top level has no match.
var stateContainers = []string{
	"state",
	"agent_state",
	"final_state",
	"graph_state",
	"result_state",
}

const (
	// wholeResponseMinLen is the minimum trimmed length for treating a bare
	// string response as the content itself.
	wholeResponseMinLen = 50
	// scanMinLen is the minimum trimmed length for a string found by the
	// generic tree scan.
	scanMinLen = 100
	// maxScanDepth bounds the generic scan to keep worst-case cost fixed.
	maxScanDepth = 3
)

// Content returns the best-candidate generated text from a decoded backend
// response, or the empty string when nothing qualifies. An empty return is
// not an error by itself; callers decide what empty content at a terminal
// status means.
func Content(v any) string {
	if m, ok := v.(map[string]any); ok {
		if s := fromFields(m); s != "" {
			return s
		}
		for _, container := range stateContainers {
			if nested, ok := m[container].(map[string]any); ok {
				if s := fromFields(nested); s != "" {
					return s
				}
			}
		}
	}

	if s, ok := v.(string); ok {
		if trimmed := strings.TrimSpace(s); len(trimmed) > wholeResponseMinLen {
			return trimmed
		}
	}

	return scan(v, 0)
}

// fromFields runs the ordered candidate lookup against a single object.
func fromFields(m map[string]any) string {
	for _, field := range contentFields {
		if s, ok := m[field].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// scan walks the value tree depth-first looking for the first sufficiently
// long string. Map keys are visited in sorted order so the result is
// deterministic. depth is the nesting level of v; values deeper than
// maxScanDepth are never inspected.
func scan(v any, depth int) string {
	if depth > maxScanDepth {
		return ""
	}

	switch t := v.(type) {
	case string:
		if trimmed := strings.TrimSpace(t); len(trimmed) > scanMinLen {
			return trimmed
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := scan(t[k], depth+1); s != "" {
				return s
			}
		}
	case []any:
		for _, e := range t {
			if s := scan(e, depth+1); s != "" {
				return s
			}
		}
	}

	return ""
}
