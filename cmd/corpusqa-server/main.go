// Package main provides the MCP server entry point for corpus question
// answering.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/corpusqa/internal/embedding"
	"github.com/bull/corpusqa/internal/engine"
	"github.com/bull/corpusqa/internal/index"
	mcpserver "github.com/bull/corpusqa/internal/mcp"
	"github.com/bull/corpusqa/internal/planner"
	"github.com/bull/corpusqa/internal/retrieval"
	"github.com/bull/corpusqa/internal/synthesis"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	port := getEnv("PORT", "8080")

	provider, err := buildProvider()
	if err != nil {
		log.Fatalf("failed to create embedding provider: %v", err)
	}

	idx, checker, closeIdx, err := buildIndex(provider)
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	defer closeIdx()

	eng := engine.New(
		planner.New(),
		retrieval.New(provider, idx),
		buildSynthesizer(provider),
		engine.Config{
			TopK:     getEnvInt("TOP_K", retrieval.DefaultTopK),
			MaxSteps: getEnvInt("MAX_STEPS", engine.DefaultMaxSteps),
		},
	)

	server := mcpserver.NewServer(&mcpserver.Config{
		Engine:    eng,
		Retriever: retrieval.New(provider, idx),
		Index:     idx,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(checker))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode with a background health endpoint for local testing
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting CorpusQA MCP Server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
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

func buildIndex(provider embedding.Provider) (index.Index, mcpserver.HealthChecker, func(), error) {
	switch backend := getEnv("INDEX_BACKEND", "memory"); backend {
	case "qdrant":
		host := getEnv("QDRANT_HOST", "localhost")
		qdrantPort := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnv("QDRANT_COLLECTION", "corpusqa")

		idx, err := index.NewQdrantIndex(host, qdrantPort, collection, provider.Dimension())
		if err != nil {
			return nil, nil, nil, err
		}
		return idx, idx, func() { idx.Close() }, nil

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
			return nil, nil, nil, err
		}
		// Embedded index has no external dependency to health-check.
		return idx, nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown index backend %q", backend)
	}
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
