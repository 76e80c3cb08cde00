package controller

import (
	"net/http"

	"github.com/janzheng/notion-api-worker/app/api/controller/types"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}
