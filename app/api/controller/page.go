package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// loadPage runs the primary page fetch and maps its failure modes onto the
// response: 503 when the upstream call fails, 502 when the payload has no
// record map. Both are fatal for the request.
func (c *Controller) loadPage(w http.ResponseWriter, r *http.Request, pageID string) (*notion.RecordMap, bool) {
	chunk, err := c.App.Notion.LoadPage(r.Context(), pageID, bearerToken(r))
	if err != nil {
		c.App.Logger.Error("Failed to fetch page from Notion",
			zap.String("pageId", pageID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch data from Notion. The API may be temporarily unavailable.", err.Error())
		return nil, false
	}
	if chunk.RecordMap == nil {
		writeError(w, http.StatusBadGateway, "Invalid response from Notion API")
		return nil, false
	}
	return chunk.RecordMap, true
}

// parsePageID normalizes the path variable, answering 400 on garbage.
func (c *Controller) parsePageID(w http.ResponseWriter, r *http.Request, varName string) (string, bool) {
	id, err := notion.ParsePageID(mux.Vars(r)[varName])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return "", false
	}
	return id, true
}

// HandlePage returns the page's full block graph keyed by block ID.
func (c *Controller) HandlePage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := c.parsePageID(w, r, "pageId")
	if !ok {
		return
	}

	recordMap, ok := c.loadPage(w, r, pageID)
	if !ok {
		return
	}

	if _, err := recordMap.PageBlock(pageID); err != nil {
		writeError(w, http.StatusNotFound, "Page block not found in Notion response")
		return
	}

	writeJSON(w, http.StatusOK, recordMap.Blocks)
}
