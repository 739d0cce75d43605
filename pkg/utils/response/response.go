package response

import (
	"net/http"

	"golfjudge/pkg/errors"
	"golfjudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response represents a standard API response
type Response struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data,omitempty"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success sends a successful response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.Success,
		Message: "Success",
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Accepted acknowledges work that will finish asynchronously.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Code:    errors.Success,
		Message: "Accepted",
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Error sends an error response derived from err's code.
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)
	status := customErr.Code.HTTPStatus()
	fields := []zap.Field{
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request error", append(fields, zap.Error(customErr.Err), zap.String("stack", customErr.Stack))...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}

	resp := Response{
		Code:    customErr.Code,
		Message: customErr.Error(),
		TraceID: getTraceID(c),
	}
	if len(customErr.Details) > 0 {
		resp.Details = customErr.Details
	}
	c.JSON(status, resp)
}

// BadRequest sends a 400 with an InvalidParams code
func BadRequest(c *gin.Context, message string) {
	Error(c, errors.New(errors.InvalidParams).WithMessage(message))
}

// AbortWithError aborts the request and sends error response
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func getTraceID(c *gin.Context) string {
	if traceID, ok := c.Get("trace_id"); ok {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
