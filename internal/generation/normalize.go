// Package generation contains the request normalizer and the orchestrator
// that drives one generation request end to end.
package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmcallister/draftforge/internal/catalog"
	"github.com/jmcallister/draftforge/pkg/models"
)

// Normalization defaults applied when the caller leaves a field empty.
const (
	defaultAudience       = "general"
	defaultPlatform       = "blog"
	defaultLength         = "medium"
	defaultTone           = "professional"
	defaultPriority       = 1
	defaultTimeoutSeconds = 300
)

// RawInput is the inbound body for POST /api/generate. Two naming
// conventions survive from earlier clients (template vs templateId);
// both are accepted and produce identical canonical output.
type RawInput struct {
	Template          string         `json:"template"`
	TemplateID        string         `json:"templateId"`
	StyleProfile      string         `json:"style_profile"`
	StyleProfileID    string         `json:"styleProfileId"`
	Topic             string         `json:"topic"`
	Audience          string         `json:"audience"`
	Platform          string         `json:"platform"`
	Length            string         `json:"length"`
	Tags              []string       `json:"tags"`
	Tone              string         `json:"tone"`
	Code              bool           `json:"code"`
	DynamicParameters map[string]any `json:"dynamic_parameters"`
	Priority          int            `json:"priority"`
	TimeoutSeconds    int            `json:"timeout_seconds"`
	GenerationMode    string         `json:"generation_mode"`
	UserID            string         `json:"user_id"`
}

// ValidationError reports unusable input. It is never retried and never
// reaches the transport layer.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

var validModes = map[string]bool{
	models.ModeStandard:   true,
	models.ModeEnhanced:   true,
	models.ModePremium:    true,
	models.ModeEnterprise: true,
}

// Normalize merges raw user input into one canonical GenerationRequest,
// resolving field aliases, filling defaults, and minting the client-side
// request id.
func Normalize(in RawInput) (*models.GenerationRequest, error) {
	template := firstNonBlank(in.Template, in.TemplateID)
	style := firstNonBlank(in.StyleProfile, in.StyleProfileID)

	if template == "" && style == "" {
		return nil, &ValidationError{msg: fmt.Sprintf(
			"a template id (field %q or %q) or style profile id (field %q or %q) is required; "+
				"known templates: %s; known style profiles: %s",
			"template", "templateId", "style_profile", "styleProfileId",
			strings.Join(catalog.TemplateIDs(), ", "),
			strings.Join(catalog.StyleProfileIDs(), ", "))}
	}

	topic := resolveTopic(in, template, style)

	mode := strings.ToLower(strings.TrimSpace(in.GenerationMode))
	if !validModes[mode] {
		mode = models.ModeEnhanced
	}

	priority := in.Priority
	if priority <= 0 {
		priority = defaultPriority
	}
	timeout := in.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	// Echo the resolved identifiers into dynamic_parameters so the backend
	// has them regardless of top-level schema drift. The caller's map is
	// copied, never mutated.
	params := make(map[string]any, len(in.DynamicParameters)+3)
	for k, v := range in.DynamicParameters {
		params[k] = v
	}
	params["template_id"] = template
	params["style_profile_id"] = style
	params["topic"] = topic

	return &models.GenerationRequest{
		RequestID:         uuid.NewString(),
		Template:          template,
		StyleProfile:      style,
		Topic:             topic,
		Audience:          firstNonBlank(in.Audience, defaultAudience),
		Platform:          firstNonBlank(in.Platform, defaultPlatform),
		Length:            firstNonBlank(in.Length, defaultLength),
		Tags:              tags,
		Tone:              firstNonBlank(in.Tone, defaultTone),
		Code:              in.Code,
		DynamicParameters: params,
		Priority:          priority,
		TimeoutSeconds:    timeout,
		GenerationMode:    mode,
		CreatedAt:         time.Now().UTC(),
		UserID:            strings.TrimSpace(in.UserID),
	}, nil
}

// resolveTopic picks the caller's topic when one was given (directly or via
// dynamic_parameters), and otherwise synthesizes one from the template and
// style names. A hard-coded example topic is never used as a silent default:
// a stale placeholder once leaked into production content.
func resolveTopic(in RawInput, template, style string) string {
	if t := strings.TrimSpace(in.Topic); t != "" {
		return t
	}
	if v, ok := in.DynamicParameters["topic"]; ok {
		if s, ok := v.(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return SynthesizeTopic(template, style)
}

// SynthesizeTopic derives a deterministic topic from template and style ids.
// Same inputs always produce the same topic.
func SynthesizeTopic(template, style string) string {
	tName := catalog.TemplateName(template)
	sName := catalog.StyleProfileName(style)
	switch {
	case tName == "":
		return sName + " piece"
	case sName == "":
		return tName
	default:
		return fmt.Sprintf("%s in %s style", tName, sName)
	}
}

// firstNonBlank returns the first value that is non-empty after trimming.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
