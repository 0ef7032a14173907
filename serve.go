package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chxlky/forum-trello-sync/api"
	"github.com/chxlky/forum-trello-sync/database"
	"github.com/chxlky/forum-trello-sync/integrations"
	"github.com/chxlky/forum-trello-sync/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type app struct {
	db     *gorm.DB
	store  *database.Store
	boards integrations.BoardClientFactory
	forums integrations.ForumGateway
	engine *reconcile.Engine
}

func newApp() (*app, error) {
	db := database.Init(viper.GetString("database.path"))
	store := database.NewStore(db)

	apiKey := viper.GetString("trello.api_key")
	if apiKey == "" {
		return nil, errors.New("trello.api_key is not configured")
	}
	boards := integrations.NewTrelloFactory(apiKey, viper.GetUint("trello.retry_attempts"))

	forums, err := integrations.NewDiscordClient(viper.GetString("discord.bot_token"))
	if err != nil {
		return nil, err
	}

	return &app{
		db:     db,
		store:  store,
		boards: boards,
		forums: forums,
		engine: reconcile.NewEngine(store, forums, boards),
	}, nil
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		zap.L().Error("Error closing database", zap.Error(err))
	} else {
		zap.L().Info("Database connection closed.")
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the OAuth callback and sync API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	apiHandler := &api.Handler{
		Store:       a.store,
		Engine:      a.engine,
		Boards:      a.boards,
		Forums:      a.forums,
		Workers:     make(chan struct{}, viper.GetInt("sync.workers")),
		TrelloKey:   viper.GetString("trello.api_key"),
		RedirectURL: viper.GetString("oauth.redirect_url"),
		AppName:     appName,
		RemoveExtra: viper.GetBool("sync.remove_extra"),
	}
	router := api.NewRouter(apiHandler, zap.L())

	port := viper.GetString("server.port")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	zap.L().Info("Starting server", zap.String("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		a.close()
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
	return nil
}
