package types

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/cache"
	"github.com/janzheng/notion-api-worker/pkg/notion"
)

type App struct {
	// Notion is the record store client every handler fetches through.
	Notion *notion.Client
	// Cache backs the stale-while-revalidate edge.
	Cache *cache.Cache
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
