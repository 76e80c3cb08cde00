package api

import (
	"context"

	"github.com/janzheng/notion-api-worker/app/api/types"
	"github.com/janzheng/notion-api-worker/pkg/cache"
	"github.com/janzheng/notion-api-worker/pkg/logging"
	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	app := &types.App{
		Notion: notion.NewFromEnv(logger),
		Cache:  cache.NewFromEnv(ctx, logger),
		Logger: logger,
	}

	return app
}
