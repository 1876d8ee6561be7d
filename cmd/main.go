package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"paperpal/internal/ai"
	"paperpal/internal/api"
	"paperpal/internal/config"
	"paperpal/internal/helper"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional; OPENAI_API_KEY may come from the real environment.
	_ = godotenv.Load()

	cfgPath := os.Getenv("PAPERPAL_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("Error loading config")
	}
	if cfg.OpenAI.APIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY not found")
	}

	for _, dir := range []string{cfg.Storage.UploadsDir, cfg.Storage.TempAudioDir, cfg.VectorStore.Dir} {
		if err := helper.CreateFolder(dir); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Error creating directory")
		}
		log.Info().Str("dir", dir).Msg("Directory ensured")
	}

	components := ai.NewComponents(cfg)
	if err := components.Ensure(); err != nil {
		// Handlers retry initialization per request; start degraded.
		log.Warn().Err(err).Msg("Initial AI component setup failed")
	}

	handler := api.NewHandler(components, cfg)
	router := gin.Default()
	handler.RegisterRoutes(router)

	log.Info().Str("address", cfg.Server.Address).Msg("Starting server")
	if err := router.Run(cfg.Server.Address); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}
