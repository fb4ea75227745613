// Package prompt builds generation prompts for the writing tools.
package prompt

import (
	"fmt"
	"strings"

	"github.com/alan-mat/scholar/internal/api"
)

var refinePrefixes = map[api.Tool]string{
	api.ToolRewriter:  "Rewrite the following text to be more academic and coherent:",
	api.ToolExtender:  "Expand upon the following text with more details, evidence, and examples:",
	api.ToolChecker:   "Analyze the following text for structure, clarity, and grammar. Provide specific improvements:",
	api.ToolShortener: "Summarize and shorten the following text while retaining key points:",
}

var topicInstructions = map[api.Tool]string{
	api.ToolResearchTitle: "Propose five concise research titles for the topic:",
	api.ToolAbstract:      "Write an academic abstract (150-250 words) for:",
	api.ToolOutline:       "Draft a structured essay outline with an introduction, body sections and a conclusion for:",
	api.ToolHook:          "Write three engaging opening hooks for an essay about:",
	api.ToolConclusion:    "Write a conclusion paragraph that synthesizes the main arguments of:",
}

// System turns cfg into an instruction for the model.
func System(cfg api.GenerationConfig) string {
	cfg = cfg.WithDefaults()

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an academic writing assistant. Write in %s.", cfg.Language)
	fmt.Fprintf(&sb, " Target length: about %d words.", cfg.Words)
	fmt.Fprintf(&sb, " Style: %s.", strings.ToLower(cfg.ContentType))
	if cfg.Undetectable {
		sb.WriteString(" Vary sentence length and structure so the text reads as naturally human-written.")
	}
	return sb.String()
}

// Essay builds the prompt of the step-by-step essay wizard.
func Essay(title string, outline []string, cfg api.GenerationConfig) string {
	return fmt.Sprintf("Write an essay about %s based on outline: %s.\n\n%s",
		title, strings.Join(outline, ", "), configLine(cfg))
}

// DirectEssay builds the essay prompt from a free-form instruction.
func DirectEssay(instruction string, cfg api.GenerationConfig) string {
	cfg = cfg.WithDefaults()
	return fmt.Sprintf("INSTRUCTION: %s\n\nCONTEXT: Write a full essay in %s. Target words: %d. Undetectable: %t.",
		instruction, cfg.Language, cfg.Words, cfg.Undetectable)
}

type CapstoneOutline struct {
	Topic       string
	Milestones  []string
	Literature  string
	Methodology string
}

// Capstone builds the prompt of the step-by-step thesis wizard.
func Capstone(o CapstoneOutline, cfg api.GenerationConfig) string {
	return fmt.Sprintf("CAPSTONE PROJECT. Topic: %s. Milestones: %s. Lit: %s. Method: %s.\n\n%s",
		o.Topic, strings.Join(o.Milestones, "; "), o.Literature, o.Methodology, configLine(cfg))
}

func DirectCapstone(instruction string, cfg api.GenerationConfig) string {
	cfg = cfg.WithDefaults()
	return fmt.Sprintf("GENERATE COMPLETE CAPSTONE/THESIS.\n\nINSTRUCTION: %s\n\nCONFIG: Language %s, Words %d",
		instruction, cfg.Language, cfg.Words)
}

// Refine builds the prompt of a text refinement tool.
// It returns an empty string for tools that do not refine text,
// or when input is blank.
func Refine(tool api.Tool, input string, cfg api.GenerationConfig) string {
	prefix, ok := refinePrefixes[tool]
	if !ok || strings.TrimSpace(input) == "" {
		return ""
	}
	return fmt.Sprintf("%s %q\n\n%s", prefix, input, configLine(cfg))
}

// Topic builds the prompt of the single-shot topic tools.
func Topic(tool api.Tool, topic string, cfg api.GenerationConfig) string {
	instruction, ok := topicInstructions[tool]
	if !ok || strings.TrimSpace(topic) == "" {
		return ""
	}
	return fmt.Sprintf("%s %s\n\n%s", instruction, topic, configLine(cfg))
}

func configLine(cfg api.GenerationConfig) string {
	cfg = cfg.WithDefaults()
	return fmt.Sprintf("Configuration: words=%d, language=%s, type=%s, undetectable=%t",
		cfg.Words, cfg.Language, cfg.ContentType, cfg.Undetectable)
}
