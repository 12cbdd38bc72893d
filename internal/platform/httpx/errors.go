package httpx

import (
	"errors"
	"net/http"

	"github.com/clubledger/clubledger/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP problem responses.
// Unclassified errors become opaque 500s; internal details never leak.
func RespondError(w http.ResponseWriter, err error) {
	switch shared.KindOf(err) {
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", shared.CodeOf(err), userMessage(err))
	case shared.KindBadRequest:
		Problem(w, http.StatusBadRequest, "Bad Request", shared.CodeOf(err), userMessage(err))
	case shared.KindConflict:
		Problem(w, http.StatusConflict, "Conflict", shared.CodeOf(err), userMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "", "")
	}
}

func userMessage(err error) string {
	var se *shared.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
