package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/auth"
	"github.com/stakepact/server/internal/config"
	"github.com/stakepact/server/internal/handlers"
	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/notify"
	"github.com/stakepact/server/internal/service"
	"github.com/stakepact/server/internal/storage/sqlite"
	"github.com/stakepact/server/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sink := notify.NewStoreSink(store)

	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)

	h := handlers.New(
		authenticator,
		jwtManager,
		service.NewGroupService(store),
		service.NewRuleService(store, sink),
		service.NewDeletionService(store, sink, cfg.DeletionWindow),
		service.NewSessionService(store, sink),
		service.NewObligationService(store, sink),
		store,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	h.Routes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}

func corsConfig(origins string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	if origins == "*" {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = strings.Split(origins, ",")
	return c
}
