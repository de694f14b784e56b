package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-saas/backend/pkg/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// PreconditionFailed sends 412. Used when a stateful guard rejected the
// operation (cap reached, rate-limited, wrong credit state).
func PreconditionFailed(c *gin.Context, err string) {
	c.JSON(http.StatusPreconditionFailed, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// FromError translates a domain error and sends the matching status. All
// service errors funnel through here so handlers stay free of error-kind
// mapping.
func FromError(c *gin.Context, err error) {
	appErr := apperr.Translate(err)
	switch appErr.Kind {
	case apperr.KindUnauthorized:
		Unauthorized(c, appErr.Message)
	case apperr.KindForbidden:
		Forbidden(c, appErr.Message)
	case apperr.KindNotFound:
		NotFound(c, appErr.Message)
	case apperr.KindBadRequest:
		BadRequest(c, appErr.Message)
	case apperr.KindPreconditionFailed:
		PreconditionFailed(c, appErr.Message)
	case apperr.KindConflict:
		Conflict(c, appErr.Message)
	default:
		Internal(c, "internal error")
	}
}
