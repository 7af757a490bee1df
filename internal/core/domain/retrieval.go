package domain

type SearchOptions struct {
	TopK           int    `json:"top_k"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Reference is the display/provenance record for one ranked chunk.
type Reference struct {
	Index        int     `json:"index"`
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	StartLine    int     `json:"start_line"`
	EndLine      int     `json:"end_line"`
	Similarity   float64 `json:"similarity"`
	Excerpt      string  `json:"excerpt"`
	Cited        bool    `json:"cited"`
	Verified     bool    `json:"verified"`
}

// CitationCheck is the outcome of verifying one quote found in a generated answer.
type CitationCheck struct {
	Reference int    `json:"reference"`
	Quote     string `json:"quote"`
	Verified  bool   `json:"verified"`
}

type Retrieval struct {
	Matches             []ScoredChunk `json:"-"`
	References          []Reference   `json:"references"`
	Threshold           float64       `json:"threshold"`
	NoSufficientMatches bool          `json:"no_sufficient_matches"`
	Context             string        `json:"-"`
}

type Answer struct {
	ConversationID      string          `json:"conversation_id,omitempty"`
	Text                string          `json:"text"`
	GenerationError     string          `json:"generation_error,omitempty"`
	References          []Reference     `json:"references"`
	Citations           []CitationCheck `json:"citations,omitempty"`
	Threshold           float64         `json:"threshold"`
	NoSufficientMatches bool            `json:"no_sufficient_matches"`
}
