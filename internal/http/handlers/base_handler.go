// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tabiplan/internal/service"
)

// MsgNoSuggestions is shown when a suggestion batch could not be produced.
const MsgNoSuggestions = "旅行先の提案を取得できませんでした。もう一度お試しください。"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps planner errors to HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrInvalidTrip),
		errors.Is(err, service.ErrCandidateIndex),
		errors.Is(err, service.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrNothingToExport):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoCandidates),
		errors.Is(err, service.ErrNoDestination):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoSuggestions):
		writeError(c, http.StatusBadGateway, MsgNoSuggestions)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "request timed out")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
