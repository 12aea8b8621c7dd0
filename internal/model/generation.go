package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// GenerationRecord is an immutable log entry for one successful generation.
type GenerationRecord struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	TemplateSlug string    `json:"template_slug"`
	TemplateName string    `json:"template_name"`
	InputFields  Fields    `json:"input_fields"`
	OutputText   string    `json:"output_text"`
	OutputLength int64     `json:"output_length"`
	CreatedAt    time.Time `json:"created_at"`
}

// CharacterCount is the number of credits a piece of output costs:
// one per Unicode code point. A character outside the Basic Multilingual
// Plane, such as an emoji, costs 1 here where a UTF-16 length counts 2.
func CharacterCount(s string) int64 {
	return int64(utf8.RuneCountInString(s))
}

// NewGenerationRecord builds a record whose OutputLength matches its text.
func NewGenerationRecord(id, accountID, slug, name string, fields Fields, output string, createdAt time.Time) *GenerationRecord {
	return &GenerationRecord{
		ID:           id,
		AccountID:    accountID,
		TemplateSlug: slug,
		TemplateName: name,
		InputFields:  fields,
		OutputText:   output,
		OutputLength: CharacterCount(output),
		CreatedAt:    createdAt,
	}
}

// ComponentType selects extra formatting instructions for a prompt.
type ComponentType string

// Known component types.
const (
	ComponentInstagramPost ComponentType = "instagram-post"
	ComponentBlogPost      ComponentType = "blog-post"
	ComponentTwitterPost   ComponentType = "twitter-post"
	ComponentSEOContent    ComponentType = "seo-content"
)

var componentInstructions = map[ComponentType]string{
	ComponentInstagramPost: "Format as an Instagram post with engaging caption and relevant hashtags.",
	ComponentBlogPost:      "Format as a complete blog post with introduction, body with subheadings, and conclusion.",
	ComponentTwitterPost:   "Format as a concise Twitter post under 280 characters.",
	ComponentSEOContent:    "Optimize for SEO with appropriate keyword density and meta description.",
}

// Instruction returns the formatting instruction for a component type.
func (c ComponentType) Instruction() (string, bool) {
	s, ok := componentInstructions[c]
	return s, ok
}

// ComposePrompt appends each field as "\n<key>: <value>" in order, then the
// component instruction (if any) after a blank line.
func ComposePrompt(promptTemplate string, fields Fields, component ComponentType) string {
	var b strings.Builder
	b.WriteString(promptTemplate)
	for _, e := range fields.entries {
		b.WriteString("\n")
		b.WriteString(e.Key)
		b.WriteString(": ")
		b.WriteString(e.Value)
	}
	if instr, ok := component.Instruction(); ok {
		b.WriteString("\n\n")
		b.WriteString(instr)
	}
	return b.String()
}
