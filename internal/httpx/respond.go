package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/errandops/fulfillment/internal/errs"
)

// Wire shape: {"message": ..., "data": ...} on success, {"error": ...} on
// failure. Internal causes never reach the client.
type successBody struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
	Data  any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, successBody{Message: message, Data: data})
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorBody{Error: err.Error(), Data: nil})
}

func statusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
