package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/notion"
)

// HandleUser resolves a single user through the same batched lookup the row
// pipeline uses.
func (c *Controller) HandleUser(w http.ResponseWriter, r *http.Request) {
	userID, err := notion.ParsePageID(mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	users, err := c.App.Notion.GetUsers(r.Context(), []string{userID}, bearerToken(r))
	if err != nil {
		c.App.Logger.Error("Failed to fetch user from Notion",
			zap.String("userId", userID),
			zap.Error(err))
		writeErrorWithMessage(w, http.StatusServiceUnavailable,
			"Failed to fetch data from Notion. The API may be temporarily unavailable.", err.Error())
		return
	}
	if len(users) == 0 {
		writeError(w, http.StatusNotFound, "User not found: "+userID)
		return
	}

	writeJSON(w, http.StatusOK, users[0])
}
