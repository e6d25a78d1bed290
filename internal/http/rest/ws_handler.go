package rest

import (
	"net/http"

	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/values"
)

// ServeWebSocket attaches the caller to the alert and notification hub.
func (api *API) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		writeErrorResponse(w, err, values.NotAuthorised, "not-authorized")
		return
	}
	api.Deps.WebSocket.HandleConnections(w, r, userID)
}
