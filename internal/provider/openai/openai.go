package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/provider"
	"github.com/sashabaranov/go-openai"
)

const (
	Name               = "openai"
	embedMaxDocsLength = 2048
)

func init() {
	provider.Register(Name, func(cfg provider.Config) (provider.Generator, error) {
		return New(cfg)
	})
}

type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	vectorDims  int
}

func New(cfg provider.Config) (*OpenAIProvider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4Dot1Mini
	}

	return &OpenAIProvider{
		client:      openai.NewClient(key),
		model:       model,
		temperature: cfg.Temperature,
		vectorDims:  1024,
	}, nil
}

func (p OpenAIProvider) Generate(ctx context.Context, req api.CompletionRequest) (api.CompletionStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	openaiReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	if req.ModelName != "" {
		openaiReq.Model = req.ModelName
	}
	if req.Temperature != 0 {
		openaiReq.Temperature = req.Temperature
	}

	s, err := p.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, err
	}

	return &OpenAIChatStream{stream: s}, nil
}

func (p OpenAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	openaiReq := &openai.EmbeddingRequestStrings{
		Input:          []string{q},
		Model:          openai.SmallEmbedding3,
		EncodingFormat: "float",
		Dimensions:     p.vectorDims,
	}

	res, err := p.client.CreateEmbeddings(ctx, openaiReq)
	if err != nil {
		return nil, err
	}

	return res.Data[0].Embedding, nil
}

func (p OpenAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		if len(doc.Chunks) > embedMaxDocsLength {
			return nil, fmt.Errorf("length of chunks exceeds limit: accepts '%d', received '%d'", embedMaxDocsLength, len(doc.Chunks))
		}

		openaiReq := &openai.EmbeddingRequestStrings{
			Input:          doc.Chunks,
			Model:          openai.SmallEmbedding3,
			EncodingFormat: "float",
			Dimensions:     p.vectorDims,
		}

		res, err := p.client.CreateEmbeddings(ctx, openaiReq)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
		}

		vals := make([][]float32, 0, len(res.Data))
		for _, e := range res.Data {
			vals = append(vals, e.Embedding)
		}

		docEmbeddings = append(docEmbeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vals,
		})
	}

	return docEmbeddings, nil
}

func (p OpenAIProvider) GetDimensions() uint {
	return uint(p.vectorDims)
}

type OpenAIChatStream struct {
	stream *openai.ChatCompletionStream
}

func (s OpenAIChatStream) Recv() (string, error) {
	for {
		res, err := s.stream.Recv()
		if err != nil {
			return "", err
		}

		// usage and keep-alive chunks carry no choices
		if len(res.Choices) == 0 {
			continue
		}
		return res.Choices[0].Delta.Content, nil
	}
}

func (s OpenAIChatStream) Close() error {
	return s.stream.Close()
}
