package api

const RerankScoreThreshold = 0.5

// Reference is a citable academic work.
type Reference struct {
	DOI   string `json:"doi" yaml:"doi"`
	Title string `json:"title" yaml:"title"`
}

type ScoredDocument struct {
	// Required
	Content string
	Score   float64

	// Optional
	Title string
	Url   string

	// Index is the position of the document in the request
	// it was scored for.
	Index int
}

type EmbedDocumentRequest struct {
	Title  string
	Chunks []string
}

type DocumentEmbedding struct {
	Title  string
	Chunks []string
	Values [][]float32
}

type RerankRequest struct {
	// Required params
	Query     string
	Documents []string

	// Optional params
	Limit     int
	ModelName string
	Threshold *float64
}

type RerankResponse struct {
	Query     string
	Documents []*ScoredDocument

	ModelName string
}
