package controller

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/janzheng/notion-api-worker/app/api/controller/types"
	apptypes "github.com/janzheng/notion-api-worker/app/api/types"
	"github.com/janzheng/notion-api-worker/pkg/notion"
)

type Controller struct {
	App *apptypes.App

	assembler *notion.Assembler
	edge      *cacheEdge
}

// NewController returns a new controller.
func NewController(app *apptypes.App) *Controller {
	resolver := notion.NewResolver(app.Notion, app.Logger, 8)
	return &Controller{
		App:       app,
		assembler: notion.NewAssembler(app.Notion, resolver, app.Logger),
		edge:      newCacheEdge(app.Cache, app.Logger),
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodHead+", "+http.MethodPost+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/v1/page/{pageId}", c.edge.wrap(c.HandlePage)).Methods(http.MethodGet)
	r.HandleFunc("/v1/table/{pageId}", c.edge.wrap(c.HandleTable)).Methods(http.MethodGet)
	r.HandleFunc("/v1/collection/{pageId}", c.edge.wrap(c.HandleCollection)).Methods(http.MethodGet)
	r.HandleFunc("/v1/user/{userId}", c.edge.wrap(c.HandleUser)).Methods(http.MethodGet)
	r.HandleFunc("/v1/search", c.edge.wrap(c.HandleSearch)).Methods(http.MethodGet)
	r.HandleFunc("/v1/asset", c.edge.wrap(c.HandleAsset)).Methods(http.MethodGet)
	r.HandleFunc("/v1/block/{blockId}", c.edge.wrap(c.HandleBlock)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(c.HandleNotFound)

	return r, nil
}

// HandleNotFound lists the available routes so the API self-documents.
func (c *Controller) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, types.RoutesResponse{
		Error: "Route not found!",
		Routes: []string{
			"/v1/page/:pageId",
			"/v1/table/:pageId",
			"/v1/collection/:pageId",
			"/v1/user/:userId",
			"/v1/search",
			"/v1/block/:blockId",
			"/v1/asset?url=[filename]&blockId=[id]",
		},
	})
}

// bearerToken extracts the upstream session credential from the
// Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}
