package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/viant/imgsim/embed"
	"github.com/viant/imgsim/index"
	"github.com/viant/imgsim/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// StatusCode maps a domain error to its HTTP status.
func StatusCode(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, service.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, index.ErrInvalidArgument), errors.Is(err, embed.ErrEmbedding):
		return http.StatusBadRequest
	case errors.Is(err, index.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, index.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := StatusCode(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		s.logger.Error("request error", "uri", c.Request().RequestURI, "error", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Warn("failed to write error response", "error", err)
	}
}
