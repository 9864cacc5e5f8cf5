// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// ErrValidation marks request payloads that failed validation.
var ErrValidation = errors.New("validation failed")

// RespondError handles the errors every handler shares: malformed or
// invalid payloads and everything a handler did not map itself.
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrValidation) {
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
