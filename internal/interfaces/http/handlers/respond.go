// Package handlers implements the HTTP API endpoints.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/pkg/errors"
)

// errorBody is the uniform error envelope returned by every endpoint.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an error to its HTTP status via the error-code table and
// writes the error envelope.
func respondError(c *gin.Context, err error) {
	var body errorBody

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		body = errorBody{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Detail:  appErr.Detail,
		}
	} else {
		body = errorBody{
			Code:    string(errors.ErrCodeInternal),
			Message: err.Error(),
		}
	}

	c.AbortWithStatusJSON(errors.HTTPStatusForCode(errors.GetCode(err)), gin.H{"error": body})
}

// respondBadRequest reports a malformed request body or parameter.
func respondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
		Code:    string(errors.ErrCodeBadRequest),
		Message: "invalid request",
		Detail:  err.Error(),
	}})
}
