// Package handlers implements the HTTP API surface over the application
// services.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
	"github.com/lawrns/flavatix/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError maps an application error to its HTTP status via the error
// code table.  5xx details are masked; the request ID lets operators find
// the full error in the logs.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}

	c.JSON(status, ErrorResponse{
		Code:      code.String(),
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// parsePagination extracts page and page_size query parameters with the
// usual defaults and a 100-row cap.
func parsePagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := 20

	if v := c.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := c.Query("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}
	return page, pageSize
}
