package prompt_test

import (
	"testing"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/prompt"
	"github.com/stretchr/testify/assert"
)

func TestSystem(t *testing.T) {
	cfg := api.GenerationConfig{Words: 500, Language: "French", ContentType: "Narrative", Undetectable: true}
	s := prompt.System(cfg)
	assert.Contains(t, s, "French")
	assert.Contains(t, s, "500 words")
	assert.Contains(t, s, "narrative")
	assert.Contains(t, s, "human-written")

	assert.NotContains(t, prompt.System(api.GenerationConfig{}), "human-written")
}

func TestEssay(t *testing.T) {
	p := prompt.Essay("AI in Education", []string{"Introduction", "Benefits", "Conclusion"}, api.DefaultGenerationConfig())
	assert.Contains(t, p, "AI in Education")
	assert.Contains(t, p, "Introduction, Benefits, Conclusion")
	assert.Contains(t, p, "words=1000")

	d := prompt.DirectEssay("Discuss remote work", api.GenerationConfig{Words: 2500})
	assert.Contains(t, d, "INSTRUCTION: Discuss remote work")
	assert.Contains(t, d, "Target words: 2500")
}

func TestCapstone(t *testing.T) {
	p := prompt.Capstone(prompt.CapstoneOutline{
		Topic:       "Urban heat islands",
		Milestones:  []string{"Phase 1", "Phase 2"},
		Literature:  "Smith 2023",
		Methodology: "Mixed methods",
	}, api.DefaultGenerationConfig())
	assert.Contains(t, p, "Milestones: Phase 1; Phase 2")
	assert.Contains(t, p, "Method: Mixed methods")

	assert.Contains(t, prompt.DirectCapstone("Thesis on soil health", api.GenerationConfig{}), "Language English (US)")
}

func TestRefine(t *testing.T) {
	p := prompt.Refine(api.ToolShortener, "A very long text.", api.DefaultGenerationConfig())
	assert.Contains(t, p, "Summarize and shorten")
	assert.Contains(t, p, `"A very long text."`)

	assert.Empty(t, prompt.Refine(api.ToolWizard, "text", api.DefaultGenerationConfig()))
	assert.Empty(t, prompt.Refine(api.ToolRewriter, "   ", api.DefaultGenerationConfig()))
}

func TestTopic(t *testing.T) {
	assert.Contains(t, prompt.Topic(api.ToolAbstract, "Quantum error correction", api.DefaultGenerationConfig()), "abstract")
	assert.Empty(t, prompt.Topic(api.ToolChecker, "anything", api.DefaultGenerationConfig()))
}
