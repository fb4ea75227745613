package api_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationConfigValidate(t *testing.T) {
	require.NoError(t, api.DefaultGenerationConfig().Validate())

	cases := map[string]api.GenerationConfig{
		"words":    {Words: 0, Language: api.DefaultLanguage, ContentType: api.DefaultContentType},
		"language": {Words: 10, Language: "Klingon", ContentType: api.DefaultContentType},
		"type":     {Words: 10, Language: api.DefaultLanguage, ContentType: "Limerick"},
	}
	for field, cfg := range cases {
		err := cfg.Validate()
		var cfgErr api.InvalidConfigError
		require.ErrorAs(t, err, &cfgErr, field)
		assert.Equal(t, field, cfgErr.Field)
		assert.Equal(t, api.KindInvalidConfig, api.Kind(err))
	}
}

func TestGenerationConfigWithDefaults(t *testing.T) {
	cfg := api.GenerationConfig{Words: 500, Undetectable: true}.WithDefaults()
	assert.Equal(t, 500, cfg.Words)
	assert.Equal(t, api.DefaultLanguage, cfg.Language)
	assert.Equal(t, api.DefaultContentType, cfg.ContentType)
	assert.True(t, cfg.Undetectable)
}

func TestAttachCitations(t *testing.T) {
	req := api.NewGenerationRequest("What is attention?")
	assert.False(t, req.AttachCitations())

	req.Tool = api.ToolScholarChat
	assert.True(t, req.AttachCitations())

	req = api.NewGenerationRequest("Rewrite this")
	req.Tool = api.ToolRewriter
	req.WithCitations = true
	assert.True(t, req.AttachCitations())
	assert.True(t, req.Tool.IsRefine())
}

func TestKindRoundTrip(t *testing.T) {
	errs := []error{
		api.ErrEmptyInput,
		api.ErrQuotaExceeded,
		api.InvalidConfigError{Field: "words", Value: "-1"},
		api.ServiceFailure{Cause: context.Canceled},
		api.ServiceFailure{Cause: context.DeadlineExceeded},
		api.ServiceFailure{Cause: errors.New("provider exploded")},
	}
	for _, err := range errs {
		kind := api.Kind(err)
		require.NotEmpty(t, kind)
		assert.Equal(t, kind, api.Kind(api.FromKind(kind, err.Error())), err.Error())
	}
	assert.Empty(t, api.Kind(nil))
}
