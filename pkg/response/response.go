package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried next to the human readable error text.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeConflict      = "CONFLICT"
	CodeNotFound      = "NOT_FOUND"
	CodeInternalError = "INTERNAL_ERROR"
)

// MessageBody is the body of a successful command.
type MessageBody struct {
	Message string `json:"message"`
}

// ErrorBody is the body of every failed request. Error keeps the plain
// text shape older clients read; Code lets newer clients branch on kind.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Success writes data as the 200 response body, unwrapped.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Message writes a 200 {"message": ...} response.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageBody{Message: message})
}

// Error writes an error response and aborts the handler chain.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorBody{
		Error: message,
		Code:  code,
	})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Conflict sends a 400 error response tagged CONFLICT. Duplicate names
// are reported as 400 for compatibility with existing clients.
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeConflict, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternalError, message)
}
