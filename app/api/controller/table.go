package controller

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// firstCollection picks the page's collection record deterministically
// (sorted record ID order, matching the declared-first semantics of the
// upstream payload).
func firstCollection(recordMap *notion.RecordMap) *notion.CollectionRecord {
	ids := make([]string, 0, len(recordMap.Collections))
	for id, rec := range recordMap.Collections {
		if rec != nil && rec.Value != nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return recordMap.Collections[ids[0]]
}

// HandleTable returns the bare decoded row array of the page's first
// collection through its first view.
func (c *Controller) HandleTable(w http.ResponseWriter, r *http.Request) {
	pageID, ok := c.parsePageID(w, r, "pageId")
	if !ok {
		return
	}

	recordMap, ok := c.loadPage(w, r, pageID)
	if !ok {
		return
	}

	collection := firstCollection(recordMap)
	if collection == nil {
		writeError(w, http.StatusUnauthorized, "No table found on Notion page: "+pageID)
		return
	}

	// A missing page block only costs the declared view order.
	pageBlock, _ := recordMap.PageBlock(pageID)
	view, _ := notion.SelectView(pageBlock, recordMap.CollectionViews, "")
	if view == nil {
		writeError(w, http.StatusUnauthorized, "No table found on Notion page: "+pageID)
		return
	}

	result, err := c.assembler.Assemble(r.Context(), collection.Value, notion.TableOptions{
		ViewID: view.ID,
		Limit:  999,
		Token:  bearerToken(r),
	})
	if err != nil {
		c.App.Logger.Error("Failed to get table data",
			zap.String("pageId", pageID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch collection data from Notion", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result.Rows)
}
