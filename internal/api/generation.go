package api

import (
	"fmt"
	"slices"
)

const (
	DefaultWords       = 1000
	DefaultLanguage    = "English (US)"
	DefaultContentType = "Argumentative"
)

var Languages = []string{
	"English (US)",
	"Spanish",
	"French",
	"Arabic",
	"German",
	"Chinese",
}

var ContentTypes = []string{
	"Argumentative",
	"Expository",
	"Narrative",
	"Descriptive",
	"Persuasive",
	"Compare and Contrast",
	"Research",
}

// GenerationConfig controls the shape of generated text.
type GenerationConfig struct {
	Words        int    `json:"words" yaml:"words"`
	Language     string `json:"language" yaml:"language"`
	ContentType  string `json:"type" yaml:"type"`
	Undetectable bool   `json:"undetectable" yaml:"undetectable"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Words:       DefaultWords,
		Language:    DefaultLanguage,
		ContentType: DefaultContentType,
	}
}

// WithDefaults fills zero fields with their default values.
func (c GenerationConfig) WithDefaults() GenerationConfig {
	d := DefaultGenerationConfig()
	if c.Words == 0 {
		c.Words = d.Words
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.ContentType == "" {
		c.ContentType = d.ContentType
	}
	return c
}

func (c GenerationConfig) Validate() error {
	if c.Words <= 0 {
		return InvalidConfigError{Field: "words", Value: fmt.Sprint(c.Words)}
	}
	if !slices.Contains(Languages, c.Language) {
		return InvalidConfigError{Field: "language", Value: c.Language}
	}
	if !slices.Contains(ContentTypes, c.ContentType) {
		return InvalidConfigError{Field: "type", Value: c.ContentType}
	}
	return nil
}

type GenerationRequest struct {
	// Required
	Prompt string `json:"prompt"`

	// Optional params
	Config        GenerationConfig `json:"config"`
	Tool          Tool             `json:"tool,omitempty"`
	WithCitations bool             `json:"with_citations,omitempty"`
}

// NewGenerationRequest returns a request for prompt using the default config.
func NewGenerationRequest(prompt string) GenerationRequest {
	return GenerationRequest{
		Prompt: prompt,
		Config: DefaultGenerationConfig(),
	}
}

// AttachCitations reports whether the result of this request
// should carry citations.
func (r GenerationRequest) AttachCitations() bool {
	return r.WithCitations || r.Tool.AttachesCitations()
}

// ProgressEvent is a snapshot of the text generated so far.
// Text is cumulative, never a delta.
type ProgressEvent struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

type GenerationResult struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations,omitempty"`
}
