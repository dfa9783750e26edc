package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/corpusqa/internal/engine"
	"github.com/bull/corpusqa/internal/index"
	"github.com/bull/corpusqa/internal/retrieval"
)

// documentCounter is implemented by index backends that can enumerate
// documents with per-document chunk counts.
type documentCounter interface {
	DocumentCounts(ctx context.Context) (map[string]int, error)
}

// makeAskHandler creates the ask_question tool handler. It runs the full
// plan-retrieve-synthesize loop and returns the answer with its reasoning
// trail. A question with no supporting evidence is a valid response, not a
// tool error.
func makeAskHandler(eng *engine.Engine) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		if input.Question == "" {
			return nil, AskQuestionOutput{}, fmt.Errorf("question must not be empty")
		}

		answer, err := eng.Ask(ctx, input.Question)
		if err != nil {
			if errors.Is(err, engine.ErrNoAnswer) {
				return nil, AskQuestionOutput{}, fmt.Errorf("no answer could be produced: %w", err)
			}
			return nil, AskQuestionOutput{}, fmt.Errorf("query failed: %w", err)
		}

		steps := make([]StepSummary, 0, len(answer.Steps))
		for _, step := range answer.Steps {
			var sources []string
			seen := make(map[string]bool)
			for _, hit := range step.Evidence {
				src := hit.Entry.Meta.Source
				if src == "" {
					src = hit.Entry.Meta.DocumentID
				}
				if !seen[src] {
					seen[src] = true
					sources = append(sources, src)
				}
			}
			steps = append(steps, StepSummary{
				SubQuestion:   step.SubQuestion.Text,
				PartialAnswer: step.PartialAnswer,
				Confidence:    step.Confidence,
				Sources:       sources,
				Degraded:      step.Degraded,
			})
		}

		return nil, AskQuestionOutput{
			Answer:     answer.Text,
			Confidence: answer.Confidence,
			Kind:       string(answer.Kind),
			NoEvidence: answer.NoEvidence,
			Steps:      steps,
		}, nil
	}
}

// makeSearchHandler creates the search_passages tool handler. It embeds the
// query and returns the nearest chunks without any synthesis.
func makeSearchHandler(retriever *retrieval.Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchPassagesInput,
) (*mcp.CallToolResult, SearchPassagesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPassagesInput) (
		*mcp.CallToolResult, SearchPassagesOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		hits, err := retriever.Retrieve(ctx, input.Query, maxResults)
		if err != nil {
			return nil, SearchPassagesOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]Passage, 0, len(hits))
		for _, hit := range hits {
			if hit.Score < input.MinScore {
				continue
			}
			results = append(results, Passage{
				DocumentID: hit.Entry.Meta.DocumentID,
				Source:     hit.Entry.Meta.Source,
				Text:       hit.Entry.Meta.Text,
				Score:      hit.Score,
				Sequence:   hit.Entry.Meta.Sequence,
			})
		}

		if len(results) == 0 {
			return nil, SearchPassagesOutput{
				Results: []Passage{},
				Message: "No matching passages found. Try broader search terms.",
			}, nil
		}

		return nil, SearchPassagesOutput{Results: results}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(idx index.Index) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		counter, ok := idx.(documentCounter)
		if !ok {
			return nil, ListDocumentsOutput{}, fmt.Errorf("index backend does not support document listing")
		}

		counts, err := counter.DocumentCounts(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		docs := make([]DocumentSummary, 0, len(counts))
		for id, chunks := range counts {
			docs = append(docs, DocumentSummary{DocumentID: id, Chunks: chunks})
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })

		return nil, ListDocumentsOutput{
			Documents: docs,
			Count:     len(docs),
		}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(idx index.Index) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		count, err := idx.Count(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("failed to count entries: %w", err)
		}

		totalDocs := -1
		if counter, ok := idx.(documentCounter); ok {
			counts, err := counter.DocumentCounts(ctx)
			if err == nil {
				totalDocs = len(counts)
			}
		}

		return nil, IndexStatusOutput{
			TotalChunks: count,
			TotalDocs:   totalDocs,
			Dimension:   idx.Dimension(),
			Metric:      index.MetricCosine,
		}, nil
	}
}
