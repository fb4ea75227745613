package cohere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/provider"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	coherecore "github.com/cohere-ai/cohere-go/v2/core"
)

const (
	Name          = "cohere"
	EmbedMaxTexts = 96

	defaultChatModel   = "command-r-08-2024"
	defaultEmbedModel  = "embed-multilingual-v3.0"
	defaultRerankModel = "rerank-v3.5"
)

func init() {
	provider.Register(Name, func(cfg provider.Config) (provider.Generator, error) {
		return New(cfg)
	})
}

type CohereProvider struct {
	client      *cohereclient.Client
	model       string
	temperature float32
}

func New(cfg provider.Config) (*CohereProvider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("COHERE_API_KEY")
	}
	if key == "" {
		return nil, errors.New("missing COHERE_API_KEY")
	}

	c := cohereclient.NewClient(
		cohereclient.WithToken(key),
		cohereclient.WithHTTPClient(
			&http.Client{
				Timeout: 60 * time.Second,
			},
		),
	)

	model := cfg.Model
	if model == "" {
		model = defaultChatModel
	}

	return &CohereProvider{
		client:      c,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (p CohereProvider) Generate(ctx context.Context, req api.CompletionRequest) (api.CompletionStream, error) {
	temp := float64(p.temperature)
	if req.Temperature != 0 {
		temp = float64(req.Temperature)
	}
	cohereReq := &cohere.V2ChatStreamRequest{
		Model:       p.model,
		Temperature: &temp,
	}

	if req.ModelName != "" {
		cohereReq.Model = req.ModelName
	}
	if req.MaxTokens > 0 {
		cohereReq.MaxTokens = &req.MaxTokens
	}

	if req.SystemPrompt != "" {
		cohereReq.Messages = append(cohereReq.Messages, &cohere.ChatMessageV2{
			Role: "system",
			System: &cohere.SystemMessage{Content: &cohere.SystemMessageContent{
				String: req.SystemPrompt,
			}},
		})
	}

	cohereReq.Messages = append(cohereReq.Messages, &cohere.ChatMessageV2{
		Role: "user",
		User: &cohere.UserMessage{Content: &cohere.UserMessageContent{
			String: req.Prompt,
		}},
	})

	stream, err := p.client.V2.ChatStream(ctx, cohereReq)
	if err != nil {
		return nil, fmt.Errorf("chat streaming request failed: %w", err)
	}

	return &CohereCompletionStream{stream: stream}, nil
}

func (p CohereProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	resp, err := p.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          []string{q},
			Model:          defaultEmbedModel,
			InputType:      cohere.EmbedInputTypeSearchQuery,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}

	return toFloat32(resp.Embeddings.Float[0]), nil
}

// EmbedDocuments embeds the chunks of each document in batches
// of at most EmbedMaxTexts.
func (p CohereProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		vectors := make([][]float32, 0, len(doc.Chunks))

		for start := 0; start < len(doc.Chunks); start += EmbedMaxTexts {
			end := min(start+EmbedMaxTexts, len(doc.Chunks))

			resp, err := p.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
				Texts:          doc.Chunks[start:end],
				Model:          defaultEmbedModel,
				InputType:      cohere.EmbedInputTypeSearchDocument,
				EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to embed document '%s': %w", doc.Title, err)
			}

			for _, v := range resp.Embeddings.Float {
				vectors = append(vectors, toFloat32(v))
			}
		}

		docEmbeddings = append(docEmbeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vectors,
		})
	}

	return docEmbeddings, nil
}

func (p CohereProvider) GetDimensions() uint {
	return 1024
}

func (p CohereProvider) Rerank(ctx context.Context, req api.RerankRequest) (*api.RerankResponse, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("rerank request failed: missing parameter 'query' in request")
	}

	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("rerank request failed: missing parameter 'documents' in request")
	}

	returnDocuments := true
	coReq := &cohere.V2RerankRequest{
		Query:           req.Query,
		Documents:       req.Documents,
		Model:           defaultRerankModel,
		ReturnDocuments: &returnDocuments,
	}

	if req.ModelName != "" {
		coReq.Model = req.ModelName
	}

	if req.Limit != 0 {
		coReq.TopN = &req.Limit
	}

	threshold := api.RerankScoreThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	resp, err := p.client.V2.Rerank(ctx, coReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}

	scoredDocs := make([]*api.ScoredDocument, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.RelevanceScore < threshold {
			continue
		}

		doc := &api.ScoredDocument{
			Score: result.RelevanceScore,
			Index: result.Index,
		}
		if result.Document != nil {
			doc.Content = result.Document.Text
		}
		scoredDocs = append(scoredDocs, doc)
	}

	return &api.RerankResponse{
		Query:     req.Query,
		Documents: scoredDocs,
		ModelName: coReq.Model,
	}, nil
}

func toFloat32(v []float64) []float32 {
	f32 := make([]float32, 0, len(v))
	for _, f := range v {
		f32 = append(f32, float32(f))
	}
	return f32
}

type CohereCompletionStream struct {
	stream *coherecore.Stream[cohere.StreamedChatResponseV2]
}

func (s CohereCompletionStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}

		delta := resp.ContentDelta
		if delta == nil || delta.Delta == nil || delta.Delta.Message == nil ||
			delta.Delta.Message.Content == nil || delta.Delta.Message.Content.Text == nil {
			continue
		}
		return *delta.Delta.Message.Content.Text, nil
	}
}

func (s CohereCompletionStream) Close() error {
	return s.stream.Close()
}
