// Package mcp exposes the question-answering engine over the Model Context
// Protocol, with both stdio and streamable HTTP transports.
package mcp

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	// Question is the natural-language question to answer.
	Question string `json:"question" jsonschema:"required,description=The natural-language question to answer from the indexed corpus"`
}

// AskQuestionOutput contains the synthesized answer and its evidence trail.
type AskQuestionOutput struct {
	// Answer is the synthesized answer text.
	Answer string `json:"answer"`
	// Confidence is the answer confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// Kind is the query classification (simple, compound, comparative, ...).
	Kind string `json:"kind"`
	// NoEvidence indicates no step found any supporting passage.
	NoEvidence bool `json:"no_evidence,omitempty"`
	// Steps is the reasoning trail, one entry per sub-question.
	Steps []StepSummary `json:"steps"`
}

// StepSummary is one reasoning step in an answer's evidence trail.
type StepSummary struct {
	// SubQuestion is the sub-question this step answered.
	SubQuestion string `json:"sub_question"`
	// PartialAnswer is the step's synthesized answer.
	PartialAnswer string `json:"partial_answer"`
	// Confidence is the step confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// Sources lists the origins of the passages used as evidence.
	Sources []string `json:"sources,omitempty"`
	// Degraded marks steps whose capability call failed.
	Degraded bool `json:"degraded,omitempty"`
}

// SearchPassagesInput defines the input parameters for the search_passages tool.
type SearchPassagesInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant passages"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of passages to return"`
	// MinScore is the minimum similarity threshold (0-1).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0,description=Minimum similarity score threshold (0-1)"`
}

// SearchPassagesOutput contains the search results.
type SearchPassagesOutput struct {
	// Results is the list of matching passages, best first.
	Results []Passage `json:"results"`
	// Message provides informational context (e.g. "No matching passages found").
	Message string `json:"message,omitempty"`
}

// Passage is a single retrieved chunk with its similarity score.
type Passage struct {
	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`
	// Source is the document's origin (file path or URL), when known.
	Source string `json:"source,omitempty"`
	// Text is the passage content.
	Text string `json:"text"`
	// Score is the cosine similarity to the query.
	Score float64 `json:"score"`
	// Sequence is the passage's position within its document.
	Sequence int `json:"sequence"`
}

// ListDocumentsInput defines the input for the list_documents tool.
// The tool takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput lists the indexed documents.
type ListDocumentsOutput struct {
	// Documents is one entry per indexed document.
	Documents []DocumentSummary `json:"documents"`
	// Count is the total number of documents.
	Count int `json:"count"`
}

// DocumentSummary describes one indexed document.
type DocumentSummary struct {
	// DocumentID is the document's stable identifier.
	DocumentID string `json:"document_id"`
	// Chunks is the number of indexed chunks for the document.
	Chunks int `json:"chunks"`
}

// IndexStatusInput defines the input for the index_status tool.
// The tool takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput reports the current state of the vector index.
type IndexStatusOutput struct {
	// TotalChunks is the number of entries in the index.
	TotalChunks int `json:"total_chunks"`
	// TotalDocs is the number of distinct documents, -1 when the backend
	// cannot report it.
	TotalDocs int `json:"total_docs"`
	// Dimension is the embedding dimension the index accepts.
	Dimension int `json:"dimension"`
	// Metric is the similarity metric in use.
	Metric string `json:"metric"`
}
