package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/checkout"
	"github.com/imrishuroy/go-checkout-orders/internal/logging"
)

// errorResponse maps an error to its HTTP status and JSON body. Business
// errors keep their message, anything else is hidden behind a 500.
func errorResponse(err error) (int, gin.H) {
	var appErr *checkout.AppError
	if errors.As(err, &appErr) {
		return appErr.Status(), gin.H{
			"status":  "error",
			"kind":    appErr.Kind,
			"message": appErr.Message,
		}
	}
	return http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "Internal server error",
	}
}

func (h *handler) writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logging.FromContextOr(c.Request.Context(), h.log).Error("request_failed",
			zap.String("route", routeOf(c)),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}
