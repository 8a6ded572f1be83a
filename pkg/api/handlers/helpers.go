package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hydrosim/exchange/pkg/session"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is
// written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// sessionIDFromQuery parses the session_id query parameter.
// Returns the zero ID and false on failure (error response is written
// automatically).
func sessionIDFromQuery(w http.ResponseWriter, r *http.Request) (session.ID, bool) {
	raw := r.URL.Query().Get("session_id")
	if raw == "" {
		BadRequest(w, "missing session_id query parameter")
		return session.ID{}, false
	}

	id, err := session.ParseID(raw)
	if err != nil {
		BadRequest(w, err.Error())
		return session.ID{}, false
	}
	return id, true
}

// varIDFromQuery parses the var_id query parameter.
func varIDFromQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("var_id")
	if raw == "" {
		BadRequest(w, "missing var_id query parameter")
		return 0, false
	}

	varID, err := strconv.Atoi(raw)
	if err != nil {
		BadRequest(w, "var_id must be an integer")
		return 0, false
	}
	return varID, true
}
