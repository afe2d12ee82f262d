package errorx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case BadRequest, InvalidOperation:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, UniqueViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body. Only the Error message is sent;
// a wrapped cause never reaches the client.
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)
	message := ErrInternal.Message
	var e Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message})
}
