package gemini

import (
	"context"
	"errors"
	"io"
	"iter"
	"os"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/provider"
	"google.golang.org/genai"
)

const (
	Name             = "gemini"
	defaultModel     = "gemini-2.0-flash"
	embeddingModel   = "gemini-embedding-exp-03-07"
	defaultVectorDim = 1536
)

func init() {
	provider.Register(Name, func(cfg provider.Config) (provider.Generator, error) {
		return New(context.Background(), cfg)
	})
}

type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	vectorDims  *int32
}

func New(ctx context.Context, cfg provider.Config) (*GeminiProvider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	p := &GeminiProvider{
		client:      c,
		model:       model,
		temperature: cfg.Temperature,
		vectorDims:  new(int32),
	}
	*(p.vectorDims) = defaultVectorDim
	return p, nil
}

func (p GeminiProvider) Generate(ctx context.Context, req api.CompletionRequest) (api.CompletionStream, error) {
	temperature := p.temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, "")
	}

	modelName := p.model
	if req.ModelName != "" {
		modelName = req.ModelName
	}

	i := p.client.Models.GenerateContentStream(ctx, modelName, genai.Text(req.Prompt), config)

	next, stop := iter.Pull2(i)
	return &GeminiCompletionStream{
		next: next,
		stop: stop,
	}, nil
}

func (p GeminiProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	config := &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: p.vectorDims,
	}

	res, err := p.client.Models.EmbedContent(ctx, embeddingModel, genai.Text(q), config)
	if err != nil {
		return nil, err
	}

	return res.Embeddings[0].Values, nil
}

func (p GeminiProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		contents := make([]*genai.Content, 0, len(doc.Chunks))
		for _, chunk := range doc.Chunks {
			contents = append(contents, genai.NewContentFromText(chunk, genai.RoleUser))
		}

		config := &genai.EmbedContentConfig{
			TaskType:             "RETRIEVAL_DOCUMENT",
			Title:                doc.Title,
			OutputDimensionality: p.vectorDims,
		}

		res, err := p.client.Models.EmbedContent(ctx, embeddingModel, contents, config)
		if err != nil {
			return nil, err
		}

		values := make([][]float32, 0, len(res.Embeddings))
		for _, e := range res.Embeddings {
			values = append(values, e.Values)
		}

		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Values: values,
			Chunks: doc.Chunks,
		})
	}

	return embeddings, nil
}

func (p GeminiProvider) GetDimensions() uint {
	return uint(*p.vectorDims)
}

type GeminiCompletionStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s GeminiCompletionStream) Recv() (string, error) {
	res, err, valid := s.next()
	if !valid {
		// iterator is finished
		return "", io.EOF
	}

	if err != nil {
		return "", err
	}

	return res.Text(), nil
}

func (s GeminiCompletionStream) Close() error {
	s.stop()
	return nil
}
