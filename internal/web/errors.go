package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/biomerkin/biomerkin/internal/core"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// writeError maps a domain error to its HTTP status and writes the
// JSON error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""
	category := core.GetCategory(err)

	switch category {
	case core.ErrCatValidation:
		status = http.StatusBadRequest
	case core.ErrCatNotFound:
		status = http.StatusNotFound
	case core.ErrCatNotReady:
		status = http.StatusConflict
	case core.ErrCatConflict:
		status = http.StatusConflict
	case core.ErrCatAgent, core.ErrCatModel:
		status = http.StatusBadGateway
	}

	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		code = domErr.Code
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   string(category),
		Code:    code,
		Message: err.Error(),
	})
}
