package controller

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// HandleSearch proxies a quick-find search scoped to an ancestor page.
func (c *Controller) HandleSearch(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	ancestorID, err := notion.ParsePageID(qs.Get("ancestorId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid ancestorId")
		return
	}

	limit := 20
	if v := qs.Get("limit"); v != "" {
		if n, aerr := strconv.Atoi(v); aerr == nil && n > 0 {
			limit = n
		}
	}

	result, err := c.App.Notion.Search(r.Context(), notion.SearchParams{
		AncestorID: ancestorID,
		Query:      qs.Get("query"),
		Limit:      limit,
	}, bearerToken(r))
	if err != nil {
		c.App.Logger.Error("Search failed",
			zap.String("ancestorId", ancestorID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch data from Notion. The API may be temporarily unavailable.", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
