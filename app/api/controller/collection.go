package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// HandleCollection returns the full typed view of the page's collection:
// decoded rows, schema, merged column layout, the active view's filters and
// sorts, and every declared view. The payload query parameter projects the
// response down to a CSV of top-level keys.
func (c *Controller) HandleCollection(w http.ResponseWriter, r *http.Request) {
	pageID, ok := c.parsePageID(w, r, "pageId")
	if !ok {
		return
	}

	qs := r.URL.Query()
	viewName := qs.Get("view")
	limit := 999
	if v := qs.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	recordMap, ok := c.loadPage(w, r, pageID)
	if !ok {
		return
	}

	pageBlock, err := recordMap.PageBlock(pageID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Page block not found in Notion response")
		return
	}

	if len(recordMap.Collections) == 0 {
		writeError(w, http.StatusUnauthorized, "No table found on Notion page: "+pageID)
		return
	}

	view, views := notion.SelectView(pageBlock, recordMap.CollectionViews, viewName)
	if view == nil {
		writeError(w, http.StatusUnauthorized, "No table found on Notion page: "+pageID)
		return
	}

	collection := collectionForPage(recordMap, pageBlock)
	if collection == nil || collection.Value == nil {
		writeError(w, http.StatusUnauthorized, "No table found on Notion page: "+pageID)
		return
	}

	queryFilter := notion.MergeFilters(view.Query2, view.Format)
	querySort := json.RawMessage("[]")
	if view.Query2 != nil && view.Query2.Sort != nil {
		querySort = view.Query2.Sort
	}

	tableData, err := c.assembler.Assemble(r.Context(), collection.Value, notion.TableOptions{
		ViewID: view.ID,
		Filter: queryFilter,
		Sort:   querySort,
		Limit:  limit,
		Token:  bearerToken(r),
	})
	if err != nil {
		c.App.Logger.Error("Failed to get collection data",
			zap.String("pageId", pageID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch collection data from Notion", err.Error())
		return
	}

	// The upstream already applied the view query; re-applying the same
	// filter list locally keeps caller-supplied filters view-accurate and
	// is idempotent for the stored ones.
	rows := notion.ApplyFilters(tableData.Rows, queryFilter, tableData.Schema)

	payload := map[string]any{
		"rows":         rows,
		"schema":       tableData.Schema,
		"name":         tableData.Name,
		"tableArr":     tableData.TableArr,
		"columns":      notion.Columns(view, tableData.Schema),
		"collection":   collection,
		"sort":         view.PageSort,
		"query_filter": queryFilter,
		"query_sort":   querySort,
		"views":        views,
	}

	if keys := qs.Get("payload"); keys != "" {
		projected := map[string]any{}
		for _, key := range strings.Split(keys, ",") {
			key = strings.TrimSpace(key)
			if v, ok := payload[key]; ok {
				projected[key] = v
			}
		}
		writeJSON(w, http.StatusOK, projected)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// collectionForPage resolves the page's declared collection_id into its
// collection record, falling back to the first collection on the page when
// the pointer is missing or dangling.
func collectionForPage(recordMap *notion.RecordMap, pageBlock *notion.Block) *notion.CollectionRecord {
	if pageBlock.CollectionID != "" {
		if rec := recordMap.Collections[pageBlock.CollectionID]; rec != nil && rec.Value != nil {
			return rec
		}
	}
	return firstCollection(recordMap)
}
