package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/app/api/controller/types"
)

// HandleAsset exchanges a stored asset URL for a signed, time-limited one.
func (c *Controller) HandleAsset(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	rawURL := qs.Get("url")
	blockID := qs.Get("blockId")
	if rawURL == "" || blockID == "" {
		writeError(w, http.StatusBadRequest, "url and blockId are required")
		return
	}

	signed, err := c.App.Notion.SignAsset(r.Context(), rawURL, blockID, bearerToken(r))
	if err != nil {
		c.App.Logger.Error("Failed to sign asset URL",
			zap.String("blockId", blockID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch data from Notion. The API may be temporarily unavailable.", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, types.AssetResponse{URL: signed})
}
