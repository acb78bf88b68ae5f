package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ragcore/internal/chunker"
	"ragcore/internal/config"
	"ragcore/internal/embedding"
	"ragcore/internal/extract"
	"ragcore/internal/helper"
	"ragcore/internal/ingestion"
	"ragcore/internal/retrieval"
	"ragcore/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

// app holds the explicitly constructed services. Lifecycle is owned
// here, not by lazy globals.
type app struct {
	cfg       *config.Config
	store     vectorstore.Store
	embedder  *embedding.Service
	pipeline  *ingestion.Pipeline
	retriever *retrieval.Retriever
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	userID := flag.String("user", "", "User id owning the documents")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Query to retrieve context for")
	projectID := flag.String("project", "", "Optional project id for tagging/filtering")
	documentID := flag.String("doc", "", "Optional document id (generated when omitted)")
	deleteID := flag.String("delete", "", "Document id to delete")
	stats := flag.Bool("stats", false, "Print the user's collection stats")
	reset := flag.Bool("reset", false, "Drop the user's collection")
	health := flag.Bool("health", false, "Check embedding provider and vector store health")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("Config not loaded, using defaults")
		cfg = config.Default()
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing services")
	}

	ctx := context.Background()

	if *health {
		helper.PrettyPrint(a.pipeline.HealthCheck(ctx))
		return
	}

	if *userID == "" {
		log.Fatal().Msg("Please provide a user id with the -user flag")
	}

	switch {
	case *filePath != "":
		a.ingestFile(ctx, *userID, *filePath, *projectID, *documentID)
	case *query != "":
		a.answerQuery(ctx, *userID, *query, *projectID, *documentID)
	case *deleteID != "":
		a.deleteDocument(ctx, *userID, *deleteID)
	case *stats:
		helper.PrettyPrint(a.pipeline.Stats(ctx, *userID))
	case *reset:
		a.resetCollection(ctx, *userID)
	default:
		log.Fatal().Msg("Please provide one of -file, -query, -delete, -stats, -reset or -health")
	}
}

func newApp(cfg *config.Config) (*app, error) {
	provider, err := embedding.NewProvider(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedding provider: %w", err)
	}
	embedder := embedding.NewService(provider, &cfg.Embedding)

	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "pgvector":
		store, err = vectorstore.NewPGStore(&cfg.VectorStore, embedder.Dimension())
	default:
		store, err = vectorstore.NewChromemStore(&cfg.VectorStore)
	}
	if err != nil {
		return nil, fmt.Errorf("error initializing vector store: %w", err)
	}

	c := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	return &app{
		cfg:       cfg,
		store:     store,
		embedder:  embedder,
		pipeline:  ingestion.NewPipeline(c, embedder, store),
		retriever: retrieval.NewRetriever(embedder, store, cfg.RAG.TopK, cfg.RAG.ScoreThreshold, cfg.RAG.PreviewMaxLen),
	}, nil
}

func (a *app) ingestFile(ctx context.Context, userID, filePath, projectID, documentID string) {
	parsed, err := extract.Parse(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}

	result := a.pipeline.Ingest(ctx, userID, parsed.Pages, filepath.Base(filePath), ingestion.Options{
		ProjectID:      projectID,
		DocumentID:     documentID,
		SourceMetadata: parsed.Metadata,
	})
	helper.PrettyPrint(result)

	if !result.Success {
		log.Error().Str("reason", result.Error).Msg("Ingestion failed")
		return
	}
	log.Info().Int("chunks", result.ChunksCreated).Msg("Document ingested")
}

func (a *app) answerQuery(ctx context.Context, userID, query, projectID, documentID string) {
	result := a.retriever.RetrieveWithFallback(ctx, userID, query, retrieval.Options{
		ProjectID:  projectID,
		DocumentID: documentID,
	})

	if !result.Success {
		log.Error().Str("reason", result.Error).Msg("Retrieval failed")
		return
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Context: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", result.ContextText)

	log.Info().Msg("Citations: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(retrieval.FormatCitations(result.Citations))

	log.Info().Float64("latency_ms", result.LatencyMS).Msg("Done")
}

func (a *app) deleteDocument(ctx context.Context, userID, documentID string) {
	if a.pipeline.DeleteDocument(ctx, userID, documentID) {
		log.Info().Str("document_id", documentID).Msg("Document deleted")
		return
	}
	log.Error().Str("document_id", documentID).Msg("Error deleting document")
}

func (a *app) resetCollection(ctx context.Context, userID string) {
	deleted, err := a.store.DeleteCollection(ctx, userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error dropping collection")
	}
	if deleted {
		log.Info().Str("user_id", userID).Msg("Collection dropped")
	} else {
		log.Info().Str("user_id", userID).Msg("Nothing to drop")
	}
}
