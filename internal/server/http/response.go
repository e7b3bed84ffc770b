package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kodasoftware/example-api/internal/common"
)

// StatusFor maps an error kind to the HTTP status returned to clients.
func StatusFor(kind common.Kind) int {
	switch kind {
	case common.KindUserExists, common.KindAccountExists, common.KindUserAlreadyLinked:
		return http.StatusConflict
	case common.KindNoSuchUser, common.KindNoSuchAccount:
		return http.StatusNotFound
	case common.KindInvalidToken, common.KindInvalidCredentials, common.KindAccountDisabled:
		return http.StatusUnauthorized
	case common.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders err with the status of its kind. Internal errors never
// leak their cause to the client.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(common.KindOf(err)), errorResponse{Error: common.Message(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return common.E(common.KindValidation, "http.decode", "malformed JSON")
		}
		return common.E(common.KindValidation, "http.decode", fmt.Sprintf("invalid body: %v", err))
	}
	return nil
}
