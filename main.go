package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/jmporch/musings/internal/config"
	"github.com/jmporch/musings/internal/db"
	"github.com/jmporch/musings/internal/httpapi"
	"github.com/jmporch/musings/internal/logger"
	"github.com/jmporch/musings/internal/repository"
)

func main() {
	boot := logger.New("info")

	if err := godotenv.Load(); err != nil {
		boot.Debug().Msg("No .env file loaded")
	}

	cfgPath := os.Getenv("MUSINGS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	config.SetLogger(boot)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Str("path", cfgPath).Msg("Failed to load config")
	}

	l := logger.New(cfg.Logging.Level)
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)

	database := db.NewSQLite(cfg.DBPath())
	if err := database.InitDb(); err != nil {
		l.Fatal().Err(err).Str("path", cfg.DBPath()).Msg("Failed to initialize database")
	}
	defer database.Close()

	repo := repository.NewDbPostRepository(database)
	if err := repo.Init(); err != nil {
		l.Fatal().Err(err).Msg("Failed to initialize post repository")
	}

	server := httpapi.NewServer(repo, cfg, l)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	l.Info().
		Str("addr", addr).
		Str("base_path", server.BasePath()).
		Str("blog_id", cfg.Blog.ID).
		Int("tokens", len(cfg.Auth.Tokens)).
		Msg("Serving blog")

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		l.Fatal().Err(err).Msg("Server stopped")
	}
}
