package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Address string `yaml:"address"`
}

type StorageConfig struct {
	UploadsDir   string `yaml:"uploads_dir"`
	TempAudioDir string `yaml:"temp_audio_dir"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	ChatModel          string `yaml:"chat_model"`
	VisionModel        string `yaml:"vision_model"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	TranscribeModel    string `yaml:"transcribe_model"`
	TranscribeLanguage string `yaml:"transcribe_language"`
	SpeechModel        string `yaml:"speech_model"`
	SpeechVoice        string `yaml:"speech_voice"`
	SpeechFormat       string `yaml:"speech_format"`
	ReplyLanguage      string `yaml:"reply_language"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type VectorStoreConfig struct {
	// Backend is either "embedded" (chromem-go, default) or "postgres".
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	Collection  string `yaml:"collection"`
	PostgresDSN string `yaml:"postgres_dsn"`
	PostgresKey string `yaml:"postgres_key"`
	Debug       bool   `yaml:"debug"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	RAG         RAGConfig         `yaml:"rag"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: ":5000"},
		Storage: StorageConfig{
			UploadsDir:   "./data/uploads",
			TempAudioDir: "./data/temp_audio",
		},
		OpenAI: OpenAIConfig{
			BaseURL:            "https://api.openai.com/v1",
			ChatModel:          "gpt-4.1",
			VisionModel:        "gpt-4.1",
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingDimension: 1536,
			TranscribeModel:    "whisper-1",
			TranscribeLanguage: "zh",
			SpeechModel:        "tts-1",
			SpeechVoice:        "alloy",
			SpeechFormat:       "mp3",
			ReplyLanguage:      "Traditional Chinese",
		},
		RAG: RAGConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         8,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "embedded",
			Dir:        "./data/vectordb",
			Collection: "papers",
		},
	}
}

// Load reads the yaml config at path, falling back to defaults when the file
// does not exist. OPENAI_API_KEY from the environment overrides the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = def.Storage.UploadsDir
	}
	if c.Storage.TempAudioDir == "" {
		c.Storage.TempAudioDir = def.Storage.TempAudioDir
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = def.OpenAI.BaseURL
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = def.OpenAI.ChatModel
	}
	if c.OpenAI.VisionModel == "" {
		c.OpenAI.VisionModel = c.OpenAI.ChatModel
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = def.OpenAI.EmbeddingModel
	}
	if c.OpenAI.EmbeddingDimension == 0 {
		c.OpenAI.EmbeddingDimension = def.OpenAI.EmbeddingDimension
	}
	if c.OpenAI.TranscribeModel == "" {
		c.OpenAI.TranscribeModel = def.OpenAI.TranscribeModel
	}
	if c.OpenAI.SpeechModel == "" {
		c.OpenAI.SpeechModel = def.OpenAI.SpeechModel
	}
	if c.OpenAI.SpeechVoice == "" {
		c.OpenAI.SpeechVoice = def.OpenAI.SpeechVoice
	}
	if c.OpenAI.SpeechFormat == "" {
		c.OpenAI.SpeechFormat = def.OpenAI.SpeechFormat
	}
	if c.OpenAI.ReplyLanguage == "" {
		c.OpenAI.ReplyLanguage = def.OpenAI.ReplyLanguage
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = def.RAG.ChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = def.RAG.TopK
	}
	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = def.VectorStore.Backend
	}
	if c.VectorStore.Dir == "" {
		c.VectorStore.Dir = def.VectorStore.Dir
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = def.VectorStore.Collection
	}
}
