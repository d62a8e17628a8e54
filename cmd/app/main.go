package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nexpass/gocardless-sync/pkg/app"
	"github.com/nexpass/gocardless-sync/pkg/handlers"
	"github.com/nexpass/gocardless-sync/pkg/logging"
	"github.com/nexpass/gocardless-sync/pkg/middleware"
)

func main() {
	logger := logging.New()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, using environment variables")
	}

	ctx := logging.WithContext(context.Background(), logger)
	session, err := app.Open(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize sync dependencies")
	}

	handler := handlers.NewHandler(session.Syncer, session.Store)

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	router.Post("/sync", handler.RunSync)
	router.Get("/requisitions", handler.ListRequisitions)
	router.Get("/healthz", handler.Healthz)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("starting server")
	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
