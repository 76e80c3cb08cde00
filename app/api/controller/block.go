package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// HandleBlock fetches a single block record by ID.
func (c *Controller) HandleBlock(w http.ResponseWriter, r *http.Request) {
	blockID, err := notion.ParsePageID(mux.Vars(r)["blockId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block id")
		return
	}

	chunk, err := c.App.Notion.GetBlocks(r.Context(), []string{blockID}, bearerToken(r))
	if err != nil {
		c.App.Logger.Error("Failed to fetch block from Notion",
			zap.String("blockId", blockID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch data from Notion. The API may be temporarily unavailable.", err.Error())
		return
	}

	if chunk.RecordMap == nil {
		writeError(w, http.StatusBadGateway, "Invalid response from Notion API")
		return
	}
	rec := chunk.RecordMap.Blocks[blockID]
	if rec == nil || rec.Value == nil {
		writeError(w, http.StatusNotFound, "Block not found: "+blockID)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
