// Package main provides the corpusqa CLI for ingesting documents and asking
// questions against the index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/corpusqa/internal/chunk"
	"github.com/bull/corpusqa/internal/embedding"
	"github.com/bull/corpusqa/internal/engine"
	"github.com/bull/corpusqa/internal/index"
	"github.com/bull/corpusqa/internal/ingest"
	"github.com/bull/corpusqa/internal/planner"
	"github.com/bull/corpusqa/internal/retrieval"
	"github.com/bull/corpusqa/internal/source"
	"github.com/bull/corpusqa/internal/synthesis"
)

var rootCmd = &cobra.Command{
	Use:   "corpusqa",
	Short: "Retrieval-augmented question answering over a document corpus",
	Long: `corpusqa ingests text and markdown documents into a vector index and
answers natural-language questions against them, decomposing compound
questions into reasoning steps.

Environment variables:
  INDEX_BACKEND       "memory" (default) or "qdrant"
  INDEX_PATH          memory index persistence file (default: corpusqa.index.json)
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION   Qdrant collection name (default: corpusqa)
  EMBEDDING_PROVIDER  "openai" or "hash"; defaults to openai when
                      OPENAI_API_KEY is set, hash otherwise
  SYNTHESIZER         "openai" or "extractive"; same default rule
  OPENAI_API_KEY      OpenAI API key
  CHUNK_SIZE          chunk window in runes (default: 300)
  CHUNK_OVERLAP       window overlap in runes (default: 50)
  GITHUB_TOKEN        GitHub token for higher rate limits (optional)`,
}

var (
	ingestDir    string
	ingestGitHub string
	ingestClear  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents into the vector index",
	Long: `Reads documents from a local directory or a GitHub repository, chunks
them, generates embeddings and stores them in the index. Re-ingesting a
document replaces its previous chunks.`,
	RunE: runIngest,
}

var (
	askTopK     int
	askMaxSteps int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index for passages, without synthesis",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "local directory to ingest")
	ingestCmd.Flags().StringVar(&ingestGitHub, "github", "", "GitHub source as owner/repo/path")
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "clear the index before ingesting")

	askCmd.Flags().IntVar(&askTopK, "top-k", retrieval.DefaultTopK, "passages retrieved per reasoning step")
	askCmd.Flags().IntVar(&askMaxSteps, "max-steps", engine.DefaultMaxSteps, "maximum reasoning steps per question")

	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "number of passages to return")

	rootCmd.AddCommand(ingestCmd, askCmd, searchCmd, statsCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// components holds the wired pipeline pieces shared by all subcommands.
type components struct {
	provider embedding.Provider
	idx      index.Index
	persist  func() error // nil when the backend persists itself
	close    func()
}

func buildProvider() (embedding.Provider, error) {
	name := getEnv("EMBEDDING_PROVIDER", "")
	if name == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			name = "openai"
		} else {
			name = "hash"
		}
	}

	switch name {
	case "openai":
		return embedding.NewOpenAIProvider(0)
	case "hash":
		return embedding.NewHashProvider(embedding.DefaultHashDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
}

func buildIndex(provider embedding.Provider) (*components, error) {
	c := &components{provider: provider, close: func() {}}

	switch backend := getEnv("INDEX_BACKEND", "memory"); backend {
	case "qdrant":
		host := getEnv("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnv("QDRANT_COLLECTION", "corpusqa")

		idx, err := index.NewQdrantIndex(host, port, collection, provider.Dimension())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		c.idx = idx
		c.close = func() { idx.Close() }

	case "memory":
		path := getEnv("INDEX_PATH", "corpusqa.index.json")

		var idx *index.MemoryIndex
		var err error
		if _, statErr := os.Stat(path); statErr == nil {
			idx, err = index.LoadMemoryIndex(path, provider.Dimension())
		} else {
			idx, err = index.NewMemoryIndex(provider.Dimension())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open index %s: %w", path, err)
		}
		c.idx = idx
		c.persist = func() error { return idx.Persist(path) }

	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}

	return c, nil
}

func buildComponents() (*components, error) {
	provider, err := buildProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	return buildIndex(provider)
}

func buildSynthesizer(provider embedding.Provider) synthesis.Synthesizer {
	name := getEnv("SYNTHESIZER", "")
	if name == "" {
		if _, ok := provider.(*embedding.OpenAIProvider); ok {
			name = "openai"
		} else {
			name = "extractive"
		}
	}

	if name == "openai" {
		if p, ok := provider.(*embedding.OpenAIProvider); ok {
			return synthesis.NewOpenAISynthesizer(p.Client(), getEnv("OPENAI_CHAT_MODEL", ""))
		}
	}
	return synthesis.NewExtractiveSynthesizer(0)
}

func buildSource(ctx context.Context) (source.Source, error) {
	switch {
	case ingestDir != "" && ingestGitHub != "":
		return nil, fmt.Errorf("--dir and --github are mutually exclusive")

	case ingestDir != "":
		return source.NewFSSource(ingestDir)

	case ingestGitHub != "":
		parts := strings.SplitN(ingestGitHub, "/", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("--github must be owner/repo or owner/repo/path")
		}
		basePath := ""
		if len(parts) == 3 {
			basePath = parts[2]
		}
		src, err := source.NewGitHubSource(parts[0], parts[1], basePath)
		if err != nil {
			return nil, err
		}
		if sha, err := src.LatestCommitSHA(ctx); err == nil {
			fmt.Printf("GitHub source at commit %s\n", sha[:12])
		}
		return src, nil

	default:
		return nil, fmt.Errorf("one of --dir or --github is required")
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	src, err := buildSource(ctx)
	if err != nil {
		return err
	}

	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.close()

	if ingestClear {
		if q, ok := c.idx.(*index.QdrantIndex); ok {
			if err := q.ClearCollection(ctx); err != nil {
				return fmt.Errorf("failed to clear collection: %w", err)
			}
		} else if c.persist != nil {
			// Start the embedded index from scratch.
			fresh, err := index.NewMemoryIndex(c.provider.Dimension())
			if err != nil {
				return err
			}
			path := getEnv("INDEX_PATH", "corpusqa.index.json")
			c.idx = fresh
			c.persist = func() error { return fresh.Persist(path) }
		}
		fmt.Println("Index cleared")
	}

	chunker, err := chunk.NewChunker(getEnvInt("CHUNK_SIZE", 300), getEnvInt("CHUNK_OVERLAP", 50))
	if err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(src, chunker, c.provider, c.idx, slog.Default())

	result, err := pipeline.IngestAll(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if c.persist != nil {
		if err := c.persist(); err != nil {
			return fmt.Errorf("failed to persist index: %w", err)
		}
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.close()

	eng := engine.New(
		planner.New(),
		retrieval.New(c.provider, c.idx),
		buildSynthesizer(c.provider),
		engine.Config{TopK: askTopK, MaxSteps: askMaxSteps},
	)

	answer, err := eng.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	fmt.Println()
	fmt.Printf("Confidence: %.2f  Kind: %s  Steps: %d\n", answer.Confidence, answer.Kind, len(answer.Steps))

	for _, step := range answer.Steps {
		marker := ""
		if step.Degraded {
			marker = " [degraded]"
		}
		fmt.Printf("  - %s (%.2f)%s\n", step.SubQuestion.Text, step.Confidence, marker)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.close()

	retriever := retrieval.New(c.provider, c.idx)
	hits, err := retriever.Retrieve(ctx, query, searchTopK)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No matching passages found.")
		return nil
	}

	for i, hit := range hits {
		origin := hit.Entry.Meta.Source
		if origin == "" {
			origin = hit.Entry.Meta.DocumentID
		}
		fmt.Printf("%d. [%.3f] %s (chunk %d)\n", i+1, hit.Score, origin, hit.Entry.Meta.Sequence)

		text := hit.Entry.Meta.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", strings.ReplaceAll(text, "\n", " "))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.close()

	count, err := c.idx.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Entries:   %d\n", count)
	fmt.Printf("Dimension: %d\n", c.idx.Dimension())
	fmt.Printf("Metric:    %s\n", index.MetricCosine)

	if m, ok := c.idx.(*index.MemoryIndex); ok {
		counts, err := m.DocumentCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Documents: %d\n", len(counts))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
