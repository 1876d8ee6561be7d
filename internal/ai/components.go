package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"paperpal/internal/chromemdb"
	"paperpal/internal/config"
	"paperpal/internal/db"
	"paperpal/internal/embedding"
	"paperpal/internal/llmservice"
	"paperpal/internal/rag"
	"paperpal/internal/speech"
)

// Components bundles the external-service clients the handlers depend on.
// It is constructed once at startup and passed explicitly; when a handler
// finds it unready it can be re-initialized in place.
type Components struct {
	Embedder embeddings.Embedder
	LLM      llms.Model
	Vision   llms.Model
	Store    rag.Store
	Speech   *speech.Client

	mu  sync.Mutex
	cfg *config.Config
}

// NewComponents returns an unbuilt component set; call Ensure to build it.
func NewComponents(cfg *config.Config) *Components {
	return &Components{cfg: cfg}
}

// Ready reports whether every client is available.
func (c *Components) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready()
}

// ready is the lock-free variant for callers already holding the mutex.
func (c *Components) ready() bool {
	return c.Embedder != nil && c.LLM != nil && c.Vision != nil && c.Store != nil && c.Speech != nil
}

// VectorStore returns the store under the same lock build holds while
// assigning it.
func (c *Components) VectorStore() rag.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Store
}

// Ensure builds the clients if any of them is missing.
func (c *Components) Ensure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready() {
		return nil
	}
	log.Warn().Msg("AI components not ready, attempting initialization")
	return c.build()
}

// Reinitialize rebuilds every client from the stored configuration.
func (c *Components) Reinitialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.build()
}

func (c *Components) build() error {
	if c.cfg == nil {
		return errors.New("components have no configuration")
	}
	cfg := c.cfg
	if cfg.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	embedder, err := embedding.NewEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chatModel, err := llmservice.NewChatModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel)
	if err != nil {
		return fmt.Errorf("failed to initialize chat model: %w", err)
	}
	visionModel, err := llmservice.NewChatModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.VisionModel)
	if err != nil {
		return fmt.Errorf("failed to initialize vision model: %w", err)
	}

	store, err := buildStore(cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}

	c.Embedder = embedder
	c.LLM = chatModel
	c.Vision = visionModel
	c.Store = store
	c.Speech = speech.NewClient(speech.Config{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		TranscribeModel: cfg.OpenAI.TranscribeModel,
		Language:        cfg.OpenAI.TranscribeLanguage,
		SpeechModel:     cfg.OpenAI.SpeechModel,
		Voice:           cfg.OpenAI.SpeechVoice,
		Format:          cfg.OpenAI.SpeechFormat,
	})
	log.Info().Str("backend", cfg.VectorStore.Backend).Str("chat_model", cfg.OpenAI.ChatModel).Msg("AI components initialized")
	return nil
}

func buildStore(cfg *config.Config, embedder embeddings.Embedder) (rag.Store, error) {
	switch cfg.VectorStore.Backend {
	case "postgres":
		bundb := db.Connect(cfg.VectorStore.PostgresDSN, cfg.VectorStore.PostgresKey, cfg.VectorStore.Debug)
		store := db.NewStore(bundb, embedder, cfg.OpenAI.EmbeddingDimension)
		if err := store.Init(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return chromemdb.NewStore(cfg.VectorStore.Dir, cfg.VectorStore.Collection, cfg.OpenAI.EmbeddingDimension, embedder)
	}
}
