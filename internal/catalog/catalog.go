// Package catalog holds the static registry of content templates and style
// profiles. The backend owns the authoritative definitions; this registry
// exists so the API can list choices, validate input with helpful errors,
// and synthesize topics without a round trip.
package catalog

import (
	"sort"
	"strings"
)

// Template selects the structure of generated content.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StyleProfile selects the tone and register of generated content.
// Templates and style profiles are orthogonal axes combined into one request.
type StyleProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var templates = map[string]Template{
	"blog_post":         {ID: "blog_post", Name: "Blog Post", Description: "Long-form article with introduction, body sections, and conclusion"},
	"business_proposal": {ID: "business_proposal", Name: "Business Proposal", Description: "Structured proposal with executive summary, scope, and pricing"},
	"product_launch":    {ID: "product_launch", Name: "Product Launch", Description: "Announcement copy for a new product or feature"},
	"newsletter":        {ID: "newsletter", Name: "Newsletter", Description: "Periodic digest with highlights and calls to action"},
	"case_study":        {ID: "case_study", Name: "Case Study", Description: "Problem, solution, and results narrative for a customer story"},
	"technical_guide":   {ID: "technical_guide", Name: "Technical Guide", Description: "Step-by-step walkthrough with code samples"},
	"social_thread":     {ID: "social_thread", Name: "Social Thread", Description: "Multi-part short-form thread for social platforms"},
	"press_release":     {ID: "press_release", Name: "Press Release", Description: "Formal announcement in wire style"},
}

var styleProfiles = map[string]StyleProfile{
	"professional":   {ID: "professional", Name: "Professional", Description: "Clear, direct business writing"},
	"conversational": {ID: "conversational", Name: "Conversational", Description: "Informal, first-person voice"},
	"phd_academic":   {ID: "phd_academic", Name: "PhD Academic", Description: "Formal academic register with citations"},
	"journalistic":   {ID: "journalistic", Name: "Journalistic", Description: "Inverted-pyramid news style"},
	"storyteller":    {ID: "storyteller", Name: "Storyteller", Description: "Narrative-driven with anecdotes"},
	"minimalist":     {ID: "minimalist", Name: "Minimalist", Description: "Short sentences, no filler"},
}

// Templates returns all known templates sorted by id.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StyleProfiles returns all known style profiles sorted by id.
func StyleProfiles() []StyleProfile {
	out := make([]StyleProfile, 0, len(styleProfiles))
	for _, s := range styleProfiles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TemplateIDs returns all known template ids sorted.
func TemplateIDs() []string {
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StyleProfileIDs returns all known style profile ids sorted.
func StyleProfileIDs() []string {
	ids := make([]string, 0, len(styleProfiles))
	for id := range styleProfiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TemplateName returns the display name for a template id. Unknown ids are
// humanized from the id itself so the catalog never blocks a request the
// backend might accept.
func TemplateName(id string) string {
	if t, ok := templates[id]; ok {
		return t.Name
	}
	return humanize(id)
}

// StyleProfileName returns the display name for a style profile id.
func StyleProfileName(id string) string {
	if s, ok := styleProfiles[id]; ok {
		return s.Name
	}
	return humanize(id)
}

// humanize converts an identifier like "market_analysis" to "Market Analysis".
func humanize(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
